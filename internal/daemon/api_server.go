package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"fluently/internal/api"
	"fluently/internal/config"
	"fluently/internal/logging"
	"fluently/internal/services"
)

const maxMultipartMemory = 8 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	svc    *api.Service

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		svc:    d.Service(),
	}

	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/recordings", srv.handleRecordings)
	mux.HandleFunc("/api/recordings/", srv.handleRecordingSubtree)
	mux.HandleFunc("/api/progress", srv.handleProgress)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleRecordings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListRecordings(w, r)
	case http.MethodPost:
		s.handleCreateRecording(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	owner, err := strconv.ParseInt(query.Get("owner"), 10, 64)
	if err != nil || owner <= 0 {
		s.writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}
	offset, _ := strconv.Atoi(query.Get("offset"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	resp, err := s.svc.ListRecordings(r.Context(), owner, offset, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCreateRecording accepts a multipart form with an "audio" file part
// plus owner, description, and submit fields.
func (s *apiServer) handleCreateRecording(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "expected multipart form upload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	owner, err := strconv.ParseInt(r.FormValue("owner"), 10, 64)
	if err != nil || owner <= 0 {
		s.writeError(w, http.StatusBadRequest, "owner form field is required")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio form file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	autoSubmit := parseBool(r.FormValue("submit"))

	view, submission, err := s.svc.CreateRecording(r.Context(), api.CreateRecordingRequest{
		OwnerID:     owner,
		ContentType: contentType,
		Filename:    header.Filename,
		Description: r.FormValue("description"),
		Body:        file,
		AutoSubmit:  autoSubmit,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, createRecordingResponse{
		Recording:  view,
		Submission: submission,
	})
}

type createRecordingResponse struct {
	Recording  api.RecordingView   `json:"recording"`
	Submission *api.SubmissionView `json:"submission,omitempty"`
}

func (s *apiServer) handleRecordingSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/recordings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		s.writeError(w, http.StatusNotFound, "recording not found")
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid recording id")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleRecording(w, r, id)
	case len(parts) == 2 && parts[1] == "analysis":
		s.handleAnalysis(w, r, id)
	case len(parts) == 2 && parts[1] == "submit":
		s.handleSubmit(w, r, id)
	case len(parts) == 2 && parts[1] == "retry":
		s.handleRetry(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "recording resource not found")
	}
}

func (s *apiServer) handleRecording(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		view, err := s.svc.GetRecording(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, view)
	case http.MethodDelete:
		if err := s.svc.DeleteRecording(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleAnalysis(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	view, err := s.svc.GetAnalysis(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	submission, err := s.svc.Submit(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, submission)
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	submission, err := s.svc.Retry(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, submission)
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	owner, err := strconv.ParseInt(query.Get("owner"), 10, 64)
	if err != nil || owner <= 0 {
		s.writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}
	start, err := parseWindowTime(query.Get("start"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid start timestamp")
		return
	}
	end, err := parseWindowTime(query.Get("end"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid end timestamp")
		return
	}
	if !end.After(start) {
		s.writeError(w, http.StatusBadRequest, "window end must follow start")
		return
	}

	view, err := s.svc.Progress(r.Context(), owner, start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func parseWindowTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New("timestamp is required")
	}
	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", trimmed)
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}

// writeServiceError maps the failure classification onto an HTTP status so
// clients can distinguish rejected uploads from queue outages.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrUnsupportedFormat):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, services.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrCorruptAudio):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrQueueUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, services.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, services.ErrTransient):
		status = http.StatusConflict
	}
	s.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  services.Kind(err),
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
