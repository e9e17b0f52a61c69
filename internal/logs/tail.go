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

const (
	pollInterval  = 250 * time.Millisecond
	maxLineLength = 1024 * 1024
)

// Options controls a single Tail call. A negative Offset reads the last Limit
// lines; otherwise reading starts at Offset. When Follow is set and nothing
// new is available, Tail polls for up to Wait before returning empty.
type Options struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// Chunk holds the lines read and the offset to resume from.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from path according to opts. A missing file is not an
// error; it yields an empty chunk at offset zero.
func Tail(ctx context.Context, path string, opts Options) (Chunk, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return Chunk{}, nil
	}
	if err != nil {
		return Chunk{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Chunk{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}
	wait := max(opts.Wait, 0)

	var chunk Chunk
	if opts.Offset < 0 {
		chunk, err = lastLines(path, opts.Limit)
	} else {
		start := opts.Offset
		if start > info.Size() {
			// Truncated or rotated underneath us; resume at the new end.
			start = info.Size()
		}
		chunk, err = linesFrom(path, start)
	}
	if err != nil {
		return chunk, err
	}
	if opts.Follow && wait > 0 && len(chunk.Lines) == 0 {
		return poll(ctx, path, chunk.Offset, wait)
	}
	return chunk, nil
}

func lastLines(path string, limit int) (Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		return Chunk{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return Chunk{}, fmt.Errorf("seek log file: %w", err)
		}
		return Chunk{Offset: end}, nil
	}

	ring := make([]string, limit)
	var total int
	end, err := scanLines(file, func(line string) {
		ring[total%limit] = line
		total++
	})
	if err != nil {
		return Chunk{}, err
	}

	n := min(total, limit)
	lines := make([]string, n)
	first := total - n
	for i := range n {
		lines[i] = ring[(first+i)%limit]
	}
	return Chunk{Lines: lines, Offset: end}, nil
}

func linesFrom(path string, offset int64) (Chunk, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Chunk{}, nil
	}
	if err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	end, err := scanLines(file, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return Chunk{Offset: offset}, err
	}
	return Chunk{Lines: lines, Offset: end}, nil
}

// scanLines feeds every complete line to fn and returns the file position
// after the last one. A trailing partial line is left for the next read.
func scanLines(file *os.File, fn func(string)) (int64, error) {
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return pos, nil
		}
		if err != nil {
			return pos, fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(line))
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		fn(trimNewline(line))
	}
}

func trimNewline(line string) string {
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}

func poll(ctx context.Context, path string, offset int64, wait time.Duration) (Chunk, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		chunk, err := linesFrom(path, offset)
		if err != nil || len(chunk.Lines) > 0 {
			return chunk, err
		}
		if !time.Now().Before(deadline) {
			return chunk, nil
		}
		select {
		case <-ctx.Done():
			return chunk, ctx.Err()
		case <-ticker.C:
		}
	}
}
