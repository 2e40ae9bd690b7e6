package model_test

import (
	"testing"

	"fluently/internal/model"
)

func TestCompositeScorerPerfectSpeech(t *testing.T) {
	scorer := model.NewCompositeScorer()
	score := scorer.Score(model.ScoreInput{
		DisfluencyRate:  0,
		SpeechRate:      140,
		DurationSeconds: 60,
	})
	if score != 100 {
		t.Fatalf("expected perfect score, got %v", score)
	}
}

func TestCompositeScorerPenalizesDisfluencies(t *testing.T) {
	scorer := model.NewCompositeScorer()
	clean := scorer.Score(model.ScoreInput{DisfluencyRate: 1, SpeechRate: 140})
	heavy := scorer.Score(model.ScoreInput{DisfluencyRate: 10, SpeechRate: 140})
	if heavy >= clean {
		t.Fatalf("expected heavier disfluency to score lower: %v vs %v", heavy, clean)
	}
}

func TestCompositeScorerPenalizesRateOutsideBand(t *testing.T) {
	scorer := model.NewCompositeScorer()
	inBand := scorer.Score(model.ScoreInput{SpeechRate: 160})
	tooFast := scorer.Score(model.ScoreInput{SpeechRate: 260})
	tooSlow := scorer.Score(model.ScoreInput{SpeechRate: 40})
	if tooFast >= inBand || tooSlow >= inBand {
		t.Fatalf("expected out-of-band rates to score lower: %v, %v vs %v", tooFast, tooSlow, inBand)
	}
}

func TestCompositeScorerClampsToRange(t *testing.T) {
	scorer := model.NewCompositeScorer()
	floor := scorer.Score(model.ScoreInput{DisfluencyRate: 1000, SpeechRate: 500})
	if floor != 0 {
		t.Fatalf("expected clamped floor, got %v", floor)
	}
}
