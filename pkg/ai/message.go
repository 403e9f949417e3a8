package ai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fine-dev/fine-go/pkg/transport"
)

// Message is a user message addressed to an assistant, optionally inside a thread.
type Message struct {
	client      *Client
	assistantID string
	threadID    string
	content     []ContentPart
	metadata    map[string]any
	err         error
}

type runMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type runRequest struct {
	AssistantID string         `json:"assistantId"`
	Messages    []runMessage   `json:"messages"`
	ThreadID    string         `json:"threadId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Stream      bool           `json:"stream"`
}

func newMessage(c *Client, assistantID, threadID string, content any) *Message {
	parts, err := Normalize(content)
	return &Message{
		client:      c,
		assistantID: assistantID,
		threadID:    threadID,
		content:     parts,
		err:         err,
	}
}

// SetMetadata attaches metadata to the run.
func (m *Message) SetMetadata(metadata map[string]any) *Message {
	m.metadata = metadata
	return m
}

// Content returns the normalized content parts.
func (m *Message) Content() []ContentPart {
	return m.content
}

// ThreadID returns the thread the message belongs to, "" outside a thread.
func (m *Message) ThreadID() string {
	return m.threadID
}

func (m *Message) runRequest(stream bool) (*transport.Request, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, err := codec.Marshal(runRequest{
		AssistantID: m.assistantID,
		Messages:    []runMessage{{Role: "user", Content: m.content}},
		ThreadID:    m.threadID,
		Metadata:    m.metadata,
		Stream:      stream,
	})
	if err != nil {
		return nil, ErrInvalidContent.MsgErr(err.Error(), err)
	}
	req := m.client.newRequest(http.MethodPost, body, "run")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// Send runs the assistant and waits for the complete result.
func (m *Message) Send(ctx context.Context) (json.RawMessage, error) {
	req, err := m.runRequest(false)
	if err != nil {
		return nil, err
	}
	raw, err := m.client.roundTrip(ctx, req)
	if err != nil {
		return nil, ErrSendMessage.MsgErr("Failed to send message: "+err.Error(), err)
	}
	return raw, nil
}

// Stream runs the assistant and delivers its output to handler event by event. It returns
// once the response headers have arrived; the body is read on a separate goroutine owned by
// the returned Stream.
//
// If the request cannot be made, or the service rejects it, handler receives exactly one
// runError event before Stream returns the error.
func (m *Message) Stream(ctx context.Context, handler EventHandler) (*Stream, error) {
	s := newStream(m.client.logger)
	fail := func(err error) (*Stream, error) {
		handler(newRunErrorEvent(s.RunID(), err.Error()))
		return nil, ErrSendStream.MsgErr("Failed to send message stream: "+err.Error(), err)
	}

	req, err := m.runRequest(true)
	if err != nil {
		return fail(err)
	}
	resp, err := m.client.transport.Do(ctx, req)
	if err != nil {
		return fail(err)
	}
	if err := transport.CheckStatus(resp); err != nil {
		return fail(err)
	}
	s.start(ctx, resp.Body, handler)
	return s, nil
}
