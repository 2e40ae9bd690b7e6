package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite must refuse to clobber the file.
	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.addr, env.configPath)
	if err == nil {
		t.Fatal("expected init to refuse overwriting existing config")
	}

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "upload_dir")
	requireContains(t, out, env.cfg.Paths.UploadDir)
}

func TestModelInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	tmp := t.TempDir()
	target := filepath.Join(tmp, "model.json")
	out, _, err := runCLI(t, []string{"model", "init", "--path", target}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("model init: %v", err)
	}
	requireContains(t, out, "Wrote sample model")

	out, _, err = runCLI(t, []string{"model", "show"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("model show: %v", err)
	}
	requireContains(t, out, "Version:")
	requireContains(t, out, "Labels:")
}
