package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"log/slog"

	"fluently/internal/api"
	"fluently/internal/config"
	"fluently/internal/deps"
	"fluently/internal/logging"
	"fluently/internal/model"
	"fluently/internal/pipeline"
	"fluently/internal/recording"
)

// Daemon coordinates the analysis worker pool and the HTTP API behind a
// single flock-guarded lifecycle so only one instance serves a data directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *recording.Store
	model  *model.Model
	pool   *pipeline.Pool
	svc    *api.Service

	apiServer *apiServer
	logPath   string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *recording.Store, svc *api.Service, mdl *model.Model, pool *pipeline.Pool, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || svc == nil || mdl == nil || pool == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, service, model, pool, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "fluentlyd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		model:    mdl,
		pool:     pool,
		svc:      svc,
		logPath:  filepath.Join(cfg.Paths.LogDir, "fluently.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, launches the worker pool, and brings up the
// HTTP API when a bind address is configured.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fluently daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.pool.Start(d.ctx); err != nil {
		d.releaseStartup()
		return fmt.Errorf("start worker pool: %w", err)
	}

	server, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.pool.Stop()
		d.releaseStartup()
		return fmt.Errorf("configure api server: %w", err)
	}
	if server != nil {
		if err := server.start(d.ctx); err != nil {
			d.pool.Stop()
			d.releaseStartup()
			return err
		}
	}
	d.apiServer = server

	d.running.Store(true)
	d.logger.Info("fluently daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("model_version", d.model.Version()),
	)
	return nil
}

func (d *Daemon) releaseStartup() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.apiServer != nil {
		d.apiServer.stop()
		d.apiServer = nil
	}
	d.pool.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("fluently daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Service exposes the application facade shared with the HTTP layer.
func (d *Daemon) Service() *api.Service {
	return d.svc
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddress reports the bound address of the HTTP API, or empty when the API
// is disabled or not yet listening.
func (d *Daemon) APIAddress() string {
	if d.apiServer == nil {
		return ""
	}
	return d.apiServer.addr()
}

// Status returns the current daemon status including queue depth.
func (d *Daemon) Status(ctx context.Context) (api.DaemonStatus, error) {
	queue, err := d.svc.Status(ctx)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DBPath:       d.store.Path(),
		LockFilePath: d.lockPath,
		ModelVersion: d.model.Version(),
		Queue:        queue,
		Dependencies: api.FromDependencies(deps.Check(d.cfg)),
	}, nil
}
