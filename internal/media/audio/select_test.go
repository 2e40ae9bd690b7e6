package audio

import (
	"testing"

	"fluently/internal/media/ffprobe"
)

func TestSelectPrefersMonoSpeechBand(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "audio", CodecName: "aac", Channels: 2, SampleRate: "44100"},
		{Index: 1, CodecType: "audio", CodecName: "pcm_s16le", Channels: 1, SampleRate: "16000"},
	}
	selection := Select(streams)
	if selection.PrimaryIndex != 1 {
		t.Fatalf("expected mono speech stream selected, got index %d", selection.PrimaryIndex)
	}
}

func TestSelectBreaksTiesByOrder(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "audio", Channels: 2, SampleRate: "44100"},
		{Index: 1, CodecType: "audio", Channels: 2, SampleRate: "44100"},
	}
	selection := Select(streams)
	if selection.PrimaryIndex != 0 {
		t.Fatalf("expected earliest stream on tie, got index %d", selection.PrimaryIndex)
	}
}

func TestSelectIgnoresNonAudioStreams(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "data"},
		{Index: 1, CodecType: "audio", Channels: 1, SampleRate: "16000"},
	}
	selection := Select(streams)
	if selection.PrimaryIndex != 1 {
		t.Fatalf("expected audio stream selected, got index %d", selection.PrimaryIndex)
	}
}

func TestSelectEmptyInput(t *testing.T) {
	selection := Select(nil)
	if selection.PrimaryIndex != -1 {
		t.Fatalf("expected -1 for no audio streams, got %d", selection.PrimaryIndex)
	}
	if selection.PrimaryLabel() != "" {
		t.Fatalf("expected empty label, got %q", selection.PrimaryLabel())
	}
}

func TestPrimaryLabel(t *testing.T) {
	selection := Select([]ffprobe.Stream{
		{Index: 0, CodecType: "audio", CodecName: "pcm_s16le", Channels: 1, SampleRate: "16000"},
	})
	if selection.PrimaryLabel() != "pcm_s16le 1ch 16000Hz" {
		t.Fatalf("unexpected label: %q", selection.PrimaryLabel())
	}
}
