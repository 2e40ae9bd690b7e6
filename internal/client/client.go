package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fluently/internal/api"
)

// ErrDaemonUnavailable indicates the daemon API could not be reached.
var ErrDaemonUnavailable = errors.New("daemon API unavailable")

// APIError carries the failure payload returned by the daemon.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("daemon returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
}

// Client provides HTTP access to a running fluently daemon.
type Client struct {
	base *url.URL
	http *http.Client
}

// New builds a client for the given bind address. The address may be a bare
// host:port or a full URL.
func New(addr string) (*Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("daemon address is required")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse daemon address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		http: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Status retrieves daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.getJSON(ctx, "/api/status", nil, &status)
	return status, err
}

// ListRecordings returns one owner's recordings, newest first.
func (c *Client) ListRecordings(ctx context.Context, ownerID int64, offset, limit int) (api.RecordingListResponse, error) {
	values := url.Values{}
	values.Set("owner", strconv.FormatInt(ownerID, 10))
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var resp api.RecordingListResponse
	err := c.getJSON(ctx, "/api/recordings", values, &resp)
	return resp, err
}

// GetRecording fetches one recording by id.
func (c *Client) GetRecording(ctx context.Context, id int64) (api.RecordingView, error) {
	var view api.RecordingView
	err := c.getJSON(ctx, recordingPath(id), nil, &view)
	return view, err
}

// DeleteRecording removes a recording, its result, and its stored audio.
func (c *Client) DeleteRecording(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, recordingPath(id), nil, "", nil)
}

// GetAnalysis fetches the stored result for a completed recording.
func (c *Client) GetAnalysis(ctx context.Context, id int64) (api.ResultView, error) {
	var view api.ResultView
	err := c.getJSON(ctx, recordingPath(id)+"/analysis", nil, &view)
	return view, err
}

// Submit queues analysis for the recording.
func (c *Client) Submit(ctx context.Context, id int64) (api.SubmissionView, error) {
	var submission api.SubmissionView
	err := c.do(ctx, http.MethodPost, recordingPath(id)+"/submit", nil, "", &submission)
	return submission, err
}

// Retry resets a failed recording and queues it again.
func (c *Client) Retry(ctx context.Context, id int64) (api.SubmissionView, error) {
	var submission api.SubmissionView
	err := c.do(ctx, http.MethodPost, recordingPath(id)+"/retry", nil, "", &submission)
	return submission, err
}

// Progress retrieves the owner's windowed progress report.
func (c *Client) Progress(ctx context.Context, ownerID int64, start, end time.Time) (api.ProgressView, error) {
	values := url.Values{}
	values.Set("owner", strconv.FormatInt(ownerID, 10))
	values.Set("start", start.UTC().Format(time.RFC3339))
	values.Set("end", end.UTC().Format(time.RFC3339))
	var view api.ProgressView
	err := c.getJSON(ctx, "/api/progress", values, &view)
	return view, err
}

// UploadRequest describes one audio file to register with the daemon.
type UploadRequest struct {
	OwnerID     int64
	Path        string
	ContentType string
	Description string
	Submit      bool
}

// UploadResponse mirrors the daemon's recording creation payload.
type UploadResponse struct {
	Recording  api.RecordingView   `json:"recording"`
	Submission *api.SubmissionView `json:"submission,omitempty"`
}

// Upload sends a local audio file to the daemon as a multipart form.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	var resp UploadResponse
	file, err := os.Open(req.Path)
	if err != nil {
		return resp, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("owner", strconv.FormatInt(req.OwnerID, 10)); err != nil {
		return resp, fmt.Errorf("encode upload form: %w", err)
	}
	if req.Description != "" {
		if err := writer.WriteField("description", req.Description); err != nil {
			return resp, fmt.Errorf("encode upload form: %w", err)
		}
	}
	if req.Submit {
		if err := writer.WriteField("submit", "true"); err != nil {
			return resp, fmt.Errorf("encode upload form: %w", err)
		}
	}

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="audio"; filename=%q`, filepath.Base(req.Path))}
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = guessContentType(req.Path)
	}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return resp, fmt.Errorf("encode upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return resp, fmt.Errorf("read audio file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return resp, fmt.Errorf("encode upload form: %w", err)
	}

	err = c.do(ctx, http.MethodPost, "/api/recordings", body, writer.FormDataContentType(), &resp)
	return resp, err
}

func guessContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

func recordingPath(id int64) string {
	return "/api/recordings/" + strconv.FormatInt(id, 10)
}

func (c *Client) getJSON(ctx context.Context, path string, values url.Values, out any) error {
	endpoint := &url.URL{Path: path}
	if values != nil {
		endpoint.RawQuery = values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.ResolveReference(endpoint).String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(&url.URL{Path: path}).String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	var payload struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		if payload.Error != "" {
			apiErr.Message = payload.Error
		}
		apiErr.Kind = payload.Kind
	}
	return apiErr
}

func isConnectionError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsUnavailable reports whether the error means the daemon is not reachable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrDaemonUnavailable)
}

// IsNotFound reports whether the daemon answered with a 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
