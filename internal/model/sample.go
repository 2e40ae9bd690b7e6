package model

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed sample_model.json
var sampleAsset []byte

// CreateSample writes the bundled starter weight asset to the given path.
// Refuses to overwrite an existing asset.
func CreateSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("model asset already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	if err := os.WriteFile(path, sampleAsset, 0o644); err != nil {
		return fmt.Errorf("write model asset: %w", err)
	}
	return nil
}
