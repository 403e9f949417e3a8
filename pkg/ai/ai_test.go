package ai

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fine-dev/fine-go/pkg/transport"
)

type response struct {
	status int
	body   io.ReadCloser
}

// fakeService answers requests from a queue of canned responses and records what it was sent.
type fakeService struct {
	mu        sync.Mutex
	requests  []*transport.Request
	responses []response
	err       error
}

func (f *fakeService) reply(status int, body string) *fakeService {
	return f.replyBody(status, io.NopCloser(strings.NewReader(body)))
}

func (f *fakeService) replyBody(status int, body io.ReadCloser) *fakeService {
	f.responses = append(f.responses, response{status: status, body: body})
	return f
}

func (f *fakeService) do(ctx context.Context, req *transport.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req.Clone())
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return &http.Response{StatusCode: r.status, Body: r.body, Header: http.Header{}}, nil
}

func (f *fakeService) last() *transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestClient(t *testing.T, f *fakeService) *Client {
	t.Helper()
	cfg, err := transport.New("https://app.example.com/ai/", f.do)
	require.NoError(t, err)
	return NewClient(cfg, WithLogger(zerolog.Nop()))
}

// chunked yields its chunks one Read at a time, then err (io.EOF when nil).
type chunked struct {
	chunks [][]byte
	err    error
}

func chunks(parts ...string) *chunked {
	c := &chunked{}
	for _, p := range parts {
		c.chunks = append(c.chunks, []byte(p))
	}
	return c
}

func (c *chunked) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if len(c.chunks[0]) == 0 {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func (c *chunked) Close() error { return nil }

// collector gathers events delivered to a handler.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Type()
	}
	return out
}

func (c *collector) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event{}, c.events...)
}
