package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteWAV writes a minimal PCM WAV file containing the given number of
// seconds of 16 kHz mono silence.
func WriteWAV(t testing.TB, path string, seconds float64) {
	t.Helper()

	const (
		sampleRate = 16000
		channels   = 1
		bitDepth   = 16
	)
	if seconds <= 0 {
		seconds = 0.1
	}
	samples := int(seconds * sampleRate)
	dataLen := samples * channels * bitDepth / 8

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	header := make([]byte, 0, 44)
	header = append(header, []byte("RIFF")...)
	header = binary.LittleEndian.AppendUint32(header, uint32(36+dataLen))
	header = append(header, []byte("WAVEfmt ")...)
	header = binary.LittleEndian.AppendUint32(header, 16)
	header = binary.LittleEndian.AppendUint16(header, 1)
	header = binary.LittleEndian.AppendUint16(header, channels)
	header = binary.LittleEndian.AppendUint32(header, sampleRate)
	header = binary.LittleEndian.AppendUint32(header, sampleRate*channels*bitDepth/8)
	header = binary.LittleEndian.AppendUint16(header, channels*bitDepth/8)
	header = binary.LittleEndian.AppendUint16(header, bitDepth)
	header = append(header, []byte("data")...)
	header = binary.LittleEndian.AppendUint32(header, uint32(dataLen))

	payload := append(header, make([]byte, dataLen)...)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
