package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"fluently/internal/services"
)

// Features is the per-segment feature vector fed to the classifier. Order
// matters: Vector must stay aligned with the feature_names list in the weight
// asset.
type Features struct {
	Energy          float64
	ZeroCrossRate   float64
	PitchVariance   float64
	DurationSeconds float64
	PauseBefore     float64
}

// Vector flattens the features in asset order.
func (f Features) Vector() []float64 {
	return []float64{f.Energy, f.ZeroCrossRate, f.PitchVariance, f.DurationSeconds, f.PauseBefore}
}

// featureCount is the length every weight vector in the asset must have.
const featureCount = 5

// Label is one disfluency class with its trained weights.
type Label struct {
	Name    string    `json:"name"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

type asset struct {
	Version           int      `json:"version"`
	FeatureNames      []string `json:"feature_names"`
	Labels            []Label  `json:"labels"`
	DecisionThreshold float64  `json:"decision_threshold"`
}

// Model classifies speech segments into disfluency classes using per-label
// logistic scoring over hand-crafted acoustic features.
type Model struct {
	version   int
	labels    []Label
	threshold float64
}

// Load reads and validates a weight asset. Any failure is a model load error;
// the daemon treats it as fatal at startup.
func Load(path string) (*Model, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrModelLoad, "model", "load", "empty asset path", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrModelLoad, "model", "load", "read asset", err)
	}

	var a asset
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, services.Wrap(services.ErrModelLoad, "model", "load", "parse asset", err)
	}
	if a.Version <= 0 {
		return nil, services.Wrap(services.ErrModelLoad, "model", "load",
			fmt.Sprintf("invalid asset version %d", a.Version), nil)
	}
	if len(a.Labels) == 0 {
		return nil, services.Wrap(services.ErrModelLoad, "model", "load", "asset declares no labels", nil)
	}
	if len(a.FeatureNames) != featureCount {
		return nil, services.Wrap(services.ErrModelLoad, "model", "load",
			fmt.Sprintf("asset declares %d features, want %d", len(a.FeatureNames), featureCount), nil)
	}
	for _, label := range a.Labels {
		if strings.TrimSpace(label.Name) == "" {
			return nil, services.Wrap(services.ErrModelLoad, "model", "load", "label with empty name", nil)
		}
		if len(label.Weights) != featureCount {
			return nil, services.Wrap(services.ErrModelLoad, "model", "load",
				fmt.Sprintf("label %q has %d weights, want %d", label.Name, len(label.Weights), featureCount), nil)
		}
	}
	threshold := a.DecisionThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}

	return &Model{
		version:   a.Version,
		labels:    a.Labels,
		threshold: threshold,
	}, nil
}

// Version returns the asset version the model was loaded from.
func (m *Model) Version() int {
	return m.version
}

// LabelNames returns the disfluency classes the model can emit.
func (m *Model) LabelNames() []string {
	names := make([]string, len(m.labels))
	for i, label := range m.labels {
		names[i] = label.Name
	}
	return names
}

// Classification is the model output for one segment.
type Classification struct {
	Label      string
	Confidence float64
}

// Classify scores the segment against every label and returns the strongest
// class above the decision threshold. ok is false for fluent segments.
func (m *Model) Classify(features Features) (Classification, bool) {
	vector := features.Vector()
	best := Classification{}
	for _, label := range m.labels {
		activation := label.Bias
		for i, weight := range label.Weights {
			activation += weight * vector[i]
		}
		confidence := sigmoid(activation)
		if confidence > best.Confidence {
			best = Classification{Label: label.Name, Confidence: confidence}
		}
	}
	if best.Confidence < m.threshold {
		return Classification{}, false
	}
	return best, true
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
