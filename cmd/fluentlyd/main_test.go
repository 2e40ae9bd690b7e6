package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigEnsuresDirectories(t *testing.T) {
	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
upload_dir = %q
processed_dir = %q
analysis_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"
`,
		filepath.Join(base, "uploads"),
		filepath.Join(base, "processed"),
		filepath.Join(base, "analysis"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Paths.UploadDir != filepath.Join(base, "uploads") {
		t.Fatalf("unexpected upload dir %q", cfg.Paths.UploadDir)
	}
	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.ProcessedDir, cfg.Paths.AnalysisDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be a directory", dir)
		}
	}
	if cfg.Workflow.Workers <= 0 {
		t.Fatalf("expected defaulted worker count, got %d", cfg.Workflow.Workers)
	}
}

func TestLoadConfigRejectsBadFile(t *testing.T) {
	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, []byte("not [valid toml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadConfig(configPath); err == nil {
		t.Fatal("expected parse error")
	}
}
