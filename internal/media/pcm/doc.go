// Package pcm decodes uploaded recordings into normalized mono samples via
// ffmpeg, resampled to the fixed analysis rate.
package pcm
