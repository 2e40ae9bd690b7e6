package pcm

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// SampleRate is the fixed analysis rate all inputs are resampled to.
const SampleRate = 16000

// Clip holds decoded mono samples normalized to [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
}

// DurationSeconds returns the clip length implied by the sample count.
func (c Clip) DurationSeconds() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Decode executes ffmpeg to convert the source into 16 kHz mono signed 16-bit
// PCM and returns the normalized samples. streamIndex selects the audio stream
// within the container; pass 0 for single-stream files.
func Decode(ctx context.Context, binary string, path string, streamIndex int) (Clip, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Clip{}, errors.New("pcm decode: empty path")
	}
	if streamIndex < 0 {
		streamIndex = 0
	}

	args := []string{
		"-v", "error",
		"-hide_banner",
		"-i", path,
		"-map", "0:a:" + strconv.Itoa(streamIndex),
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-f", "s16le",
		"-",
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Clip{}, fmt.Errorf("pcm decode: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	samples, err := FromS16LE(stdout.Bytes())
	if err != nil {
		return Clip{}, fmt.Errorf("pcm decode: %w", err)
	}
	return Clip{Samples: samples, SampleRate: SampleRate}, nil
}

// FromS16LE converts little-endian signed 16-bit PCM bytes into normalized
// float samples.
func FromS16LE(data []byte) ([]float64, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("truncated sample data: %d bytes", len(data))
	}
	samples := make([]float64, len(data)/2)
	for i := range samples {
		raw := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float64(raw) / 32768.0
	}
	return samples, nil
}
