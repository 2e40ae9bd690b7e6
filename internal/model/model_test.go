package model_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fluently/internal/model"
	"fluently/internal/services"
)

func writeAsset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disfluency.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	return path
}

func TestLoadSampleAsset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model", "disfluency.json")
	if err := model.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	m, err := model.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Version() != 1 {
		t.Fatalf("unexpected version: %d", m.Version())
	}
	labels := m.LabelNames()
	if len(labels) != 4 || labels[0] != "filler" {
		t.Fatalf("unexpected labels: %v", labels)
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disfluency.json")
	if err := model.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if err := model.CreateSample(path); err == nil {
		t.Fatal("expected error for existing asset")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := model.Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, services.ErrModelLoad) {
		t.Fatalf("expected model load error, got %v", err)
	}
}

func TestLoadRejectsMalformedAsset(t *testing.T) {
	cases := map[string]string{
		"invalid json":     `{"version": 1,`,
		"zero version":     `{"version": 0, "feature_names": ["a","b","c","d","e"], "labels": [{"name":"filler","weights":[1,1,1,1,1]}]}`,
		"no labels":        `{"version": 1, "feature_names": ["a","b","c","d","e"], "labels": []}`,
		"bad weight count": `{"version": 1, "feature_names": ["a","b","c","d","e"], "labels": [{"name":"filler","weights":[1,2]}]}`,
		"unnamed label":    `{"version": 1, "feature_names": ["a","b","c","d","e"], "labels": [{"name":" ","weights":[1,1,1,1,1]}]}`,
		"feature mismatch": `{"version": 1, "feature_names": ["a"], "labels": [{"name":"filler","weights":[1,1,1,1,1]}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := model.Load(writeAsset(t, content))
			if !errors.Is(err, services.ErrModelLoad) {
				t.Fatalf("expected model load error, got %v", err)
			}
		})
	}
}

func TestClassifySeparatesClasses(t *testing.T) {
	// One strongly positive label; a segment matching it should classify,
	// a near-zero segment should fall below the threshold.
	path := writeAsset(t, `{
        "version": 1,
        "feature_names": ["energy","zero_cross_rate","pitch_variance","duration_seconds","pause_before"],
        "labels": [{"name": "filler", "weights": [4, 0, 0, 0, 0], "bias": -2}],
        "decision_threshold": 0.6
    }`)
	m, err := model.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	hit, ok := m.Classify(model.Features{Energy: 2})
	if !ok {
		t.Fatal("expected high-energy segment to classify")
	}
	if hit.Label != "filler" || hit.Confidence <= 0.6 {
		t.Fatalf("unexpected classification: %#v", hit)
	}

	if _, ok := m.Classify(model.Features{Energy: 0.1}); ok {
		t.Fatal("expected quiet segment to stay fluent")
	}
}

func TestLoadDefaultsBadThreshold(t *testing.T) {
	path := writeAsset(t, `{
        "version": 1,
        "feature_names": ["energy","zero_cross_rate","pitch_variance","duration_seconds","pause_before"],
        "labels": [{"name": "filler", "weights": [10, 0, 0, 0, 0], "bias": 0}],
        "decision_threshold": 7
    }`)
	m, err := model.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// With the threshold clamped to 0.5, a strong activation still classifies.
	if _, ok := m.Classify(model.Features{Energy: 1}); !ok {
		t.Fatal("expected classification with defaulted threshold")
	}
}
