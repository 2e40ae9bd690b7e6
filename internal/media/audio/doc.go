// Package audio provides audio stream selection and ranking for uploaded
// recordings.
//
// This package depends only on internal/media/ffprobe and could be extracted
// as a standalone library alongside ffprobe.
//
// The selection algorithm ranks candidate streams by:
//  1. Channel count (mono > stereo > multichannel)
//  2. Speech-band sample rates (8-24 kHz) over music-oriented ones
//
// Key types:
//   - Selection: describes which stream to analyze
//
// Primary entry point:
//   - Select: analyzes streams and returns the stream to decode
package audio
