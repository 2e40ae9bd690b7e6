package audio

import (
	"fmt"
	"strings"

	"fluently/internal/media/ffprobe"
)

// Selection describes the audio stream chosen for speech analysis.
type Selection struct {
	Primary      ffprobe.Stream
	PrimaryIndex int
}

// PrimaryLabel returns a human-readable summary of the selected stream.
func (s Selection) PrimaryLabel() string {
	if s.PrimaryIndex < 0 {
		return ""
	}
	return formatStreamSummary(s.Primary)
}

// Select returns the audio stream best suited for speech analysis. Speech
// recordings are overwhelmingly mono or stereo; the function prefers fewer
// channels and speech-band sample rates, then earlier container order.
func Select(streams []ffprobe.Stream) Selection {
	candidates := buildCandidates(streams)
	if len(candidates) == 0 {
		return Selection{PrimaryIndex: -1}
	}

	primary := choosePrimary(candidates)
	return Selection{
		Primary:      primary.stream,
		PrimaryIndex: primary.stream.Index,
	}
}

// candidate captures the derived metadata used for stream ranking.
type candidate struct {
	stream     ffprobe.Stream
	order      int
	channels   int
	sampleRate int
}

type candidateList []candidate

func choosePrimary(candidates candidateList) candidate {
	best := candidates[0]
	bestScore := scorePrimary(best)
	for i := 1; i < len(candidates); i++ {
		score := scorePrimary(candidates[i])
		if score > bestScore {
			best = candidates[i]
			bestScore = score
		}
	}
	return best
}

func scorePrimary(cand candidate) float64 {
	score := 0.0

	// Fewer channels means a cleaner voice signal to analyze.
	switch {
	case cand.channels == 1:
		score += 1000
	case cand.channels == 2:
		score += 800
	case cand.channels > 2:
		score += 400
	default:
		score += 200
	}

	// Speech-band sample rates beat music-oriented ones.
	switch {
	case cand.sampleRate >= 8000 && cand.sampleRate <= 24000:
		score += 100
	case cand.sampleRate > 24000:
		score += 50
	}

	// Prefer earlier streams when scores tie.
	score -= float64(cand.order) * 0.1

	return score
}

func buildCandidates(streams []ffprobe.Stream) candidateList {
	result := make(candidateList, 0)
	order := 0
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		result = append(result, candidate{
			stream:     stream,
			order:      order,
			channels:   stream.Channels,
			sampleRate: stream.SampleRateHz(),
		})
		order++
	}
	return result
}

func formatStreamSummary(stream ffprobe.Stream) string {
	parts := make([]string, 0, 3)
	if codec := strings.TrimSpace(stream.CodecName); codec != "" {
		parts = append(parts, codec)
	}
	if stream.Channels > 0 {
		parts = append(parts, fmt.Sprintf("%dch", stream.Channels))
	}
	if rate := stream.SampleRateHz(); rate > 0 {
		parts = append(parts, fmt.Sprintf("%dHz", rate))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("stream %d", stream.Index)
	}
	return strings.Join(parts, " ")
}
