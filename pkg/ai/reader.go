package ai

import (
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	eventDelimiter = "\n\n"
	dataPrefix     = "data: "
	readChunkSize  = 4096
)

// EventReader decodes a run's streamed response body. The body is a sequence of segments
// separated by a blank line, each holding "data: " followed by one JSON document.
//
// Bytes are decoded as UTF-8 with a streaming decoder, so a multi-byte sequence split across
// reads is reassembled. Decoded text accumulates in a buffer that is split on the delimiter
// after every read; a segment that does not parse is taken to be incomplete and is kept,
// together with everything after it, until more bytes arrive.
type EventReader struct {
	src   io.Reader
	chunk []byte
	buf   string
	runID string
}

// NewEventReader returns a reader over r.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{
		src:   transform.NewReader(r, unicode.UTF8.NewDecoder()),
		chunk: make([]byte, readChunkSize),
	}
}

// ReadEvents reads r to the end, dispatching every event to handler.
func ReadEvents(ctx context.Context, r io.Reader, handler EventHandler) error {
	return NewEventReader(r).Read(ctx, handler)
}

// RunID returns the last runId seen on an event.
func (r *EventReader) RunID() string {
	return r.runID
}

// Read consumes the source until it is exhausted, calling handler synchronously for every
// event in arrival order. It returns nil on a clean end of stream, ErrTruncatedStream when
// the stream ends in the middle of an event, and ErrStreamRead when the source fails.
func (r *EventReader) Read(ctx context.Context, handler EventHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return ErrStreamRead.MsgErr(err.Error(), err)
		}
		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.buf += string(r.chunk[:n])
			r.drain(handler)
		}
		if errors.Is(err, io.EOF) {
			if strings.TrimSpace(r.buf) != "" {
				return ErrTruncatedStream.Msg("ai: stream ended with an incomplete event: " + truncate(r.buf, 64))
			}
			return nil
		}
		if err != nil {
			return ErrStreamRead.MsgErr(err.Error(), err)
		}
	}
}

// drain dispatches every complete event in the buffer.
func (r *EventReader) drain(handler EventHandler) {
	if r.buf == "" {
		return
	}
	segments := strings.Split(r.buf, eventDelimiter)
	for i, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		data := strings.TrimPrefix(strings.TrimLeft(segment, "\r\n"), dataPrefix)
		ev, err := parseEvent(data)
		if err != nil {
			r.buf = strings.Join(segments[i:], eventDelimiter)
			return
		}
		r.buf = strings.Join(segments[i+1:], eventDelimiter)
		if id, ok := ev.RunID(); ok {
			r.runID = id
		}
		handler(ev)
	}
	r.buf = ""
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
