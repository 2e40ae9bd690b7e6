package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Log lines are slog records; a megabyte is far beyond anything fluentlyd
// emits but keeps the scanner from truncating pathological lines.
const maxLineBytes = 1 << 20

// TailOptions controls one Tail call. A negative Offset means "the last
// Limit lines"; a non-negative Offset resumes reading from that byte
// position. Follow with a positive Wait polls for new lines until the wait
// elapses or the context is cancelled.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the byte offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads from the daemon log at path. A missing file is not an error:
// the daemon may not have logged yet, so Tail reports no lines and offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		result.Offset = 0
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}

	var lines []string
	var offset int64
	if opts.Offset < 0 {
		lines, offset, err = lastLines(path, opts.Limit)
	} else {
		start := opts.Offset
		if start > info.Size() {
			start = info.Size()
		}
		lines, offset, err = readSince(path, start)
	}
	if err != nil {
		return result, err
	}

	result.Lines = lines
	result.Offset = offset
	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return pollForLines(ctx, path, offset, opts.Wait)
	}
	return result, nil
}

// lastLines returns up to limit trailing lines and the end-of-file offset.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	// Ring buffer over a single forward pass keeps memory bounded by limit.
	ring := make([]string, limit)
	count := 0
	next := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, 0, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := 0; i < count; i++ {
		lines = append(lines, ring[(start+i)%limit])
	}
	return lines, end, nil
}

// readSince returns complete lines written after the given byte offset and
// the offset to resume from.
func readSince(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, end, nil
}

// pollForLines re-reads the file until a line appears, the wait elapses, or
// the context is cancelled.
func pollForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	result := TailResult{Offset: offset}
	deadline := time.Now().Add(wait)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		lines, end, err := readSince(path, offset)
		if err != nil {
			return result, err
		}
		result.Offset = end
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
