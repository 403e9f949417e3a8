// Package ai implements the fine assistant client: threads, one-shot runs and streamed runs
// whose output is decoded incrementally from a "data: <json>" framed response body.
package ai

import (
	"net/http"

	jsonitor "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fine-dev/fine-go/internal/common/apperrors"
	"github.com/fine-dev/fine-go/pkg/transport"
)

var codec = jsonitor.ConfigCompatibleWithStandardLibrary

var (
	ErrInvalidContent  = apperrors.New("ai: invalid message content")
	ErrSendMessage     = apperrors.New("ai: failed to send message")
	ErrSendStream      = apperrors.New("ai: failed to send message stream")
	ErrThread          = apperrors.New("ai: thread request failed")
	ErrTruncatedStream = apperrors.New("ai: stream ended inside an event")
	ErrStreamRead      = apperrors.New("ai: failed to read stream")
)

// Client talks to the assistant API rooted at the transport's base URL.
type Client struct {
	transport *transport.Config
	headers   transport.Headers
	logger    zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHeaders sets headers sent with every request.
func WithHeaders(h transport.Headers) Option {
	return func(c *Client) {
		c.headers = c.headers.Merge(h)
	}
}

// WithLogger sets the logger used for failed thread requests and stream lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates an assistant client.
func NewClient(cfg *transport.Config, opts ...Option) *Client {
	c := &Client{
		transport: cfg,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Message prepares a message to assistantID outside of any thread. Content may be a string,
// a ContentPart or a list mixing both; see Normalize.
func (c *Client) Message(assistantID string, content any) *Message {
	return newMessage(c, assistantID, "", content)
}

func (c *Client) newRequest(method string, body []byte, path ...string) *transport.Request {
	req := &transport.Request{
		URL:    c.transport.URL(path...),
		Method: method,
		Header: c.headers.Clone(),
		Body:   body,
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}
