// Package provider adapts raw provider response streams to fragment
// sources: plain text readers and line-delimited SSE/JSON event
// streams.
package provider

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultContentPath extracts the delta text from OpenAI-style chat
// completion chunks.
const DefaultContentPath = "choices.0.delta.content"

// doneSentinel terminates an SSE data stream.
const doneSentinel = "[DONE]"

const (
	defaultChunkSize = 4096
	maxEventSize     = 1024 * 1024
)

// ReaderSource yields raw chunks from an io.Reader as they are read.
type ReaderSource struct {
	r       io.Reader
	buf     []byte
	pending error
}

// NewReaderSource wraps a reader. chunkSize bounds the fragment size
// per Next call; values <= 0 use a 4 KiB default.
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	return &ReaderSource{r: r, buf: make([]byte, chunkSize)}
}

// Next reads the next chunk; io.EOF once the reader is drained.
// Cancellation is checked between reads, not during a blocked read.
func (s *ReaderSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.pending != nil {
		return "", s.pending
	}

	for {
		n, err := s.r.Read(s.buf)
		if n > 0 {
			// Deliver the data now; a read error surfaces on the
			// next call.
			s.pending = err

			return string(s.buf[:n]), nil
		}
		if err != nil {
			return "", err
		}
	}
}

// EventSource reads line-delimited provider events, either bare JSON
// lines or SSE "data:" lines, and extracts the delta text at a gjson
// path. Events without text at the path are skipped.
type EventSource struct {
	scanner *bufio.Scanner
	path    string
	done    bool
}

// NewEventSource wraps a reader of provider events. An empty path
// uses DefaultContentPath.
func NewEventSource(r io.Reader, path string) *EventSource {
	if path == "" {
		path = DefaultContentPath
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, defaultChunkSize), maxEventSize)

	return &EventSource{scanner: scanner, path: path}
}

// Next returns the text carried by the next event; io.EOF after the
// final line or the [DONE] sentinel.
func (s *EventSource) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if s.done {
			return "", io.EOF
		}
		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				return "", err
			}

			return "", io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if line == doneSentinel {
			s.done = true

			return "", io.EOF
		}

		if content := gjson.Get(line, s.path); content.Exists() {
			if text := content.String(); text != "" {
				return text, nil
			}
		}
	}
}
