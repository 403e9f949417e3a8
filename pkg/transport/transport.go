// Package transport defines the HTTP contract shared by the fine REST and AI clients: a
// base URL, an injected request function, the request descriptor handed to it and the
// classification of the responses it returns.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
)

// RequestFunc performs one HTTP request. Implementations are responsible for credentials and
// default headers. The caller owns the returned response body.
type RequestFunc func(ctx context.Context, req *Request) (*http.Response, error)

// Config couples a base URL with the request function every builder uses. It is immutable
// and shared by reference.
type Config struct {
	baseURL string
	do      RequestFunc
}

// New creates a transport configuration. The request function is required; there is no
// process wide default.
func New(baseURL string, do RequestFunc) (*Config, error) {
	if do == nil {
		return nil, ErrNoRequestFunc
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrInvalidBaseURL
	}
	return &Config{
		baseURL: strings.TrimRight(baseURL, "/"),
		do:      do,
	}, nil
}

// BaseURL returns the base URL without a trailing slash.
func (c *Config) BaseURL() string {
	return c.baseURL
}

// URL joins path segments onto the base URL.
func (c *Config) URL(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(s)
	}
	return b.String()
}

// Do hands the descriptor to the request function. A failure of the request function itself
// is wrapped in ErrTransport; the original cause stays reachable through errors.Is. A nil
// response without an error is reported as ErrTransport as well.
func (c *Config) Do(ctx context.Context, req *Request) (*http.Response, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, ErrTransport.MsgErr(err.Error(), err)
	}
	if resp == nil {
		return nil, ErrTransport.Msg("request function returned no response")
	}
	return resp, nil
}

// Request describes one HTTP request. A nil Body means no body is sent.
type Request struct {
	URL    string
	Method string
	Header Headers
	Body   []byte
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	cp := &Request{
		URL:    r.URL,
		Method: r.Method,
		Header: r.Header.Clone(),
	}
	if r.Body != nil {
		cp.Body = append([]byte(nil), r.Body...)
	}
	return cp
}

// HTTPRequest converts the descriptor into a net/http request bound to ctx.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, err
	}
	for _, h := range r.Header {
		req.Header.Add(h.Key, h.Value)
	}
	return req, nil
}
