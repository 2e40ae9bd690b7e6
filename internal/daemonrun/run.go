package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"fluently/internal/api"
	"fluently/internal/config"
	"fluently/internal/daemon"
	"fluently/internal/deps"
	"fluently/internal/ingest"
	"fluently/internal/logging"
	"fluently/internal/model"
	"fluently/internal/pipeline"
	"fluently/internal/recording"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run wires the full daemon runtime and blocks until the context is canceled
// or an interrupt arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := filepath.Join(cfg.Paths.LogDir, "fluently.log")
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)

	store, err := recording.Open(cfg)
	if err != nil {
		return fmt.Errorf("open recording store: %w", err)
	}

	mdl, err := model.Load(cfg.Model.Path)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("load scoring model: %w", err)
	}

	validator := ingest.NewValidator(cfg, logger)
	svc := api.NewService(cfg, store, validator, logger)
	analyzer := pipeline.NewAnalyzer(cfg, mdl, logger)
	pool := pipeline.NewPool(cfg, store, analyzer, logger)

	d, err := daemon.New(cfg, store, svc, mdl, pool, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("fluently daemon shutting down")
	d.Stop()
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	for _, status := range deps.Check(cfg) {
		if status.Available {
			logger.Info("dependency available",
				logging.String("name", status.Name),
				logging.String("command", status.Command),
			)
			continue
		}
		logger.Warn("dependency missing",
			logging.String("name", status.Name),
			logging.String("command", status.Command),
			logging.String("detail", status.Detail),
		)
	}
}
