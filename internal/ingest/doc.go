// Package ingest validates inbound recordings before they enter the analysis
// pipeline.
//
// Validation is layered cheapest-first: the declared content type is checked
// against the configured allow list before any bytes are read, the byte cap is
// enforced while streaming to disk, and finally the stored file is probed with
// ffprobe to confirm it decodes and carries an audio stream. A rejection at
// any layer removes whatever was written, so failed uploads never leak files
// into the upload directory.
package ingest
