package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeModel(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.ProcessedDir, err = expandPath(c.Paths.ProcessedDir); err != nil {
		return fmt.Errorf("paths.processed_dir: %w", err)
	}
	if c.Paths.AnalysisDir, err = expandPath(c.Paths.AnalysisDir); err != nil {
		return fmt.Errorf("paths.analysis_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeModel() error {
	c.Model.Path = strings.TrimSpace(c.Model.Path)
	if c.Model.Path == "" {
		if value, ok := os.LookupEnv("FLUENTLY_MODEL_PATH"); ok {
			c.Model.Path = strings.TrimSpace(value)
		}
	}
	if c.Model.Path == "" {
		c.Model.Path = defaultModelPath
	}
	var err error
	if c.Model.Path, err = expandPath(c.Model.Path); err != nil {
		return fmt.Errorf("model.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeIngest() {
	if len(c.Ingest.AllowedTypes) == 0 {
		c.Ingest.AllowedTypes = defaultAllowedTypes()
	}
	normalized := c.Ingest.AllowedTypes[:0]
	for _, t := range c.Ingest.AllowedTypes {
		cleaned := strings.ToLower(strings.TrimSpace(t))
		if cleaned != "" {
			normalized = append(normalized, cleaned)
		}
	}
	c.Ingest.AllowedTypes = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
