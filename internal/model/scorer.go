package model

import "math"

// ScoreInput aggregates the per-recording statistics the scorer grades.
// Rates are per minute of audio.
type ScoreInput struct {
	TotalDisfluencies int
	DisfluencyRate    float64
	SpeechRate        float64
	DurationSeconds   float64
}

// Scorer converts aggregate statistics into a fluency score in [0, 100].
type Scorer interface {
	Score(input ScoreInput) float64
}

// CompositeScorer is the default scoring strategy. It starts from a perfect
// score and subtracts a disfluency penalty plus a penalty for speech rates far
// from the conversational band.
type CompositeScorer struct {
	// DisfluencyWeight is the deduction per disfluency per minute.
	DisfluencyWeight float64
	// TargetSpeechRate is the center of the comfortable band in words per minute.
	TargetSpeechRate float64
	// SpeechRateTolerance is the half-width of the band that draws no penalty.
	SpeechRateTolerance float64
	// SpeechRateWeight is the deduction per word per minute outside the band.
	SpeechRateWeight float64
}

// NewCompositeScorer returns the default-tuned scorer.
func NewCompositeScorer() *CompositeScorer {
	return &CompositeScorer{
		DisfluencyWeight:    4,
		TargetSpeechRate:    140,
		SpeechRateTolerance: 40,
		SpeechRateWeight:    0.15,
	}
}

// Score implements Scorer.
func (s *CompositeScorer) Score(input ScoreInput) float64 {
	score := 100.0
	score -= input.DisfluencyRate * s.DisfluencyWeight

	deviation := math.Abs(input.SpeechRate-s.TargetSpeechRate) - s.SpeechRateTolerance
	if deviation > 0 {
		score -= deviation * s.SpeechRateWeight
	}

	return clampScore(score)
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
