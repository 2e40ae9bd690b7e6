package pipeline

import (
	"context"

	"fluently/internal/config"
	"fluently/internal/media/audio"
	"fluently/internal/media/ffprobe"
	"fluently/internal/media/pcm"
	"fluently/internal/services"
)

// Decoder turns a stored upload into normalized mono samples.
type Decoder interface {
	Decode(ctx context.Context, path string) (pcm.Clip, error)
}

// FFmpegDecoder probes the container, selects the speech stream, and decodes
// it with ffmpeg.
type FFmpegDecoder struct {
	cfg *config.Config
}

// NewFFmpegDecoder constructs the production decoder.
func NewFFmpegDecoder(cfg *config.Config) *FFmpegDecoder {
	return &FFmpegDecoder{cfg: cfg}
}

// Decode implements Decoder.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string) (pcm.Clip, error) {
	result, err := ffprobe.Inspect(ctx, d.cfg.FFprobeBinary(), path)
	if err != nil {
		return pcm.Clip{}, services.Wrap(services.ErrCorruptAudio, "pipeline", "decode", "probe failed", err)
	}
	selection := audio.Select(result.Streams)
	if selection.PrimaryIndex < 0 {
		return pcm.Clip{}, services.Wrap(services.ErrCorruptAudio, "pipeline", "decode", "no audio stream", nil)
	}

	// ffmpeg maps audio streams by audio-relative position, not container index.
	streamPos := 0
	for i, stream := range result.AudioStreams() {
		if stream.Index == selection.PrimaryIndex {
			streamPos = i
			break
		}
	}

	clip, err := pcm.Decode(ctx, d.cfg.FFmpegBinary(), path, streamPos)
	if err != nil {
		return pcm.Clip{}, services.Wrap(services.ErrCorruptAudio, "pipeline", "decode", "decode failed", err)
	}
	return clip, nil
}
