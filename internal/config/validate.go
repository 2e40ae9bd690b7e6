package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIngest() error {
	if len(c.Ingest.AllowedTypes) == 0 {
		return errors.New("ingest.allowed_types must list at least one content type")
	}
	for _, t := range c.Ingest.AllowedTypes {
		if !strings.HasPrefix(t, "audio/") {
			return fmt.Errorf("ingest.allowed_types: %q is not an audio content type", t)
		}
	}
	if c.Ingest.MaxUploadMB <= 0 {
		return errors.New("ingest.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateModel() error {
	if strings.TrimSpace(c.Model.Path) == "" {
		return errors.New("model.path must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.processing_timeout":   c.Workflow.ProcessingTimeout,
		"workflow.workers":              c.Workflow.Workers,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
