// Package rest implements the fine table client: a query builder per table that hands out
// filter builders, which accumulate PostgREST style predicates and perform no I/O until
// Execute is called.
//
//	rows, err := client.Table("tasks").
//		Select("id,title").
//		Eq("done", false).
//		Order("created_at", false).
//		Limit(20).
//		Execute(ctx)
package rest

import (
	"net/url"

	"github.com/fine-dev/fine-go/internal/common/apperrors"
	"github.com/fine-dev/fine-go/pkg/transport"
)

var (
	ErrInvalidTable = apperrors.New("rest: invalid table name")
	ErrEncodeBody   = apperrors.New("rest: unable to encode request body")
)

// Client is the entry point for table queries.
type Client struct {
	transport *transport.Config
	headers   transport.Headers
}

// Option configures a Client.
type Option func(*Client)

// WithHeaders sets headers sent with every request built by the client.
func WithHeaders(h transport.Headers) Option {
	return func(c *Client) {
		c.headers = c.headers.Merge(h)
	}
}

// NewClient creates a table client on top of the given transport configuration.
func NewClient(cfg *transport.Config, opts ...Option) *Client {
	c := &Client{transport: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns a query builder for {base}/tables/{name}. An invalid name is reported when
// the first builder created from it is executed.
func (c *Client) Table(name string) *QueryBuilder {
	qb := &QueryBuilder{
		transport: c.transport,
		headers:   c.headers,
	}
	if name == "" {
		qb.err = ErrInvalidTable.Msg("rest: table name is required")
		return qb
	}
	u, err := url.Parse(c.transport.URL("tables", url.PathEscape(name)))
	if err != nil {
		qb.err = ErrInvalidTable.MsgErr("rest: invalid table "+name, err)
		return qb
	}
	qb.url = u
	return qb
}
