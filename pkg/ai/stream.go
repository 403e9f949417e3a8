package ai

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Stream is a run whose output is being read. Events reach the handler on the stream's own
// goroutine; Wait blocks until the body is exhausted and Close aborts early.
type Stream struct {
	logger zerolog.Logger

	mu     sync.Mutex
	body   io.ReadCloser
	runID  string
	closed bool
	err    error
	done   chan struct{}
}

func newStream(logger zerolog.Logger) *Stream {
	return &Stream{
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (s *Stream) start(ctx context.Context, body io.ReadCloser, handler EventHandler) {
	s.mu.Lock()
	s.body = body
	s.mu.Unlock()
	go s.run(ctx, handler)
}

func (s *Stream) run(ctx context.Context, handler EventHandler) {
	defer close(s.done)
	defer s.body.Close()

	reader := NewEventReader(s.body)
	err := reader.Read(ctx, func(ev Event) {
		if id, ok := ev.RunID(); ok {
			s.setRunID(id)
		}
		handler(ev)
	})

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if err == nil || closed {
		s.logger.Debug().Str("run_id", s.RunID()).Bool("aborted", closed).Msg("stream finished")
		return
	}

	runID := s.RunID()
	s.logger.Error().Err(err).Str("run_id", runID).Msg("stream failed")
	handler(newRunErrorEvent(runID, err.Error()))
	s.mu.Lock()
	s.err = ErrSendStream.MsgErr("Failed to read message stream: "+err.Error(), err)
	s.mu.Unlock()
}

func (s *Stream) setRunID(id string) {
	s.mu.Lock()
	s.runID = id
	s.mu.Unlock()
}

// RunID returns the most recent runId carried by an event, "" before any arrived.
func (s *Stream) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Done is closed once the stream has been read to the end or aborted.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the stream finishes. It returns nil on a clean end of stream or after
// Close, and the read failure otherwise. The failure has already been delivered to the
// handler as a runError event.
func (s *Stream) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops reading and releases the response body. Events already dispatched are not
// affected; no runError event is emitted for an aborted stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	body := s.body
	s.mu.Unlock()
	if body == nil {
		return nil
	}
	return body.Close()
}
