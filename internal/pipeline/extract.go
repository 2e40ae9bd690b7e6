package pipeline

import (
	"math"

	"fluently/internal/media/pcm"
	"fluently/internal/model"
	"fluently/internal/services"
)

// Segment is one voiced region of the recording with its derived features.
type Segment struct {
	StartSeconds float64
	EndSeconds   float64
	Features     model.Features
}

const (
	frameSeconds = 0.025
	hopSeconds   = 0.010
	// minVoicedFrames drops single-frame blips that are noise, not speech.
	minVoicedFrames = 3
	// silenceFloor keeps the adaptive threshold from chasing a silent clip.
	silenceFloor = 0.005
)

type frame struct {
	energy float64
	zcr    float64
	start  float64
}

// extractSegments slices the clip into voiced segments and computes the
// feature vector for each. The voice activity threshold adapts to the clip's
// mean energy so gain differences between microphones do not change
// segmentation.
func extractSegments(clip pcm.Clip) ([]Segment, error) {
	if len(clip.Samples) == 0 || clip.SampleRate <= 0 {
		return nil, services.Wrap(services.ErrFeatureExtraction, "pipeline", "extract", "no samples decoded", nil)
	}

	frames := analyzeFrames(clip)
	if len(frames) == 0 {
		return nil, services.Wrap(services.ErrFeatureExtraction, "pipeline", "extract", "clip shorter than one frame", nil)
	}

	threshold := voiceThreshold(frames)
	segments := groupVoicedFrames(frames, threshold)
	return segments, nil
}

func analyzeFrames(clip pcm.Clip) []frame {
	frameLen := int(frameSeconds * float64(clip.SampleRate))
	hopLen := int(hopSeconds * float64(clip.SampleRate))
	if frameLen <= 0 || hopLen <= 0 {
		return nil
	}

	var frames []frame
	for start := 0; start+frameLen <= len(clip.Samples); start += hopLen {
		window := clip.Samples[start : start+frameLen]
		frames = append(frames, frame{
			energy: rms(window),
			zcr:    zeroCrossRate(window),
			start:  float64(start) / float64(clip.SampleRate),
		})
	}
	return frames
}

func voiceThreshold(frames []frame) float64 {
	total := 0.0
	for _, f := range frames {
		total += f.energy
	}
	mean := total / float64(len(frames))
	threshold := 0.3 * mean
	if threshold < silenceFloor {
		threshold = silenceFloor
	}
	return threshold
}

func groupVoicedFrames(frames []frame, threshold float64) []Segment {
	var segments []Segment
	var run []frame
	lastSegmentEnd := 0.0

	flush := func(endSeconds float64) {
		if len(run) < minVoicedFrames {
			run = nil
			return
		}
		seg := buildSegment(run, endSeconds, lastSegmentEnd)
		segments = append(segments, seg)
		lastSegmentEnd = seg.EndSeconds
		run = nil
	}

	for _, f := range frames {
		if f.energy >= threshold {
			run = append(run, f)
			continue
		}
		flush(f.start)
	}
	if len(frames) > 0 {
		flush(frames[len(frames)-1].start + frameSeconds)
	}
	return segments
}

func buildSegment(run []frame, endSeconds, lastSegmentEnd float64) Segment {
	energySum := 0.0
	zcrSum := 0.0
	for _, f := range run {
		energySum += f.energy
		zcrSum += f.zcr
	}
	count := float64(len(run))
	meanEnergy := energySum / count
	meanZCR := zcrSum / count

	zcrVariance := 0.0
	for _, f := range run {
		diff := f.zcr - meanZCR
		zcrVariance += diff * diff
	}
	zcrVariance /= count

	start := run[0].start
	pause := start - lastSegmentEnd
	if pause < 0 {
		pause = 0
	}

	return Segment{
		StartSeconds: start,
		EndSeconds:   endSeconds,
		Features: model.Features{
			Energy:          meanEnergy,
			ZeroCrossRate:   meanZCR,
			PitchVariance:   zcrVariance,
			DurationSeconds: endSeconds - start,
			PauseBefore:     pause,
		},
	}
}

func rms(window []float64) float64 {
	sum := 0.0
	for _, sample := range window {
		sum += sample * sample
	}
	return math.Sqrt(sum / float64(len(window)))
}

func zeroCrossRate(window []float64) float64 {
	if len(window) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(window); i++ {
		if (window[i-1] >= 0) != (window[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(window)-1)
}
