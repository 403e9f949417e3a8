package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fine-dev/fine-go/pkg/transport"
)

type param struct {
	key   string
	value string
}

// FilterBuilder accumulates query parameters for one request. Every chained call mutates the
// builder and returns it. No request is made until Execute.
//
// Predicates are additive: the same column may be filtered several times and every call
// appends one key to the query string, in call order. Select is the exception and replaces
// any previous projection.
//
// A FilterBuilder must not be mutated while it is being executed. Executing it from several
// goroutines at once is fine; each call issues its own request.
type FilterBuilder struct {
	transport *transport.Config
	url       *url.URL
	params    []param
	method    string
	header    transport.Headers
	body      []byte
	err       error
}

// Eq filters rows where column equals value.
func (f *FilterBuilder) Eq(column string, value any) *FilterBuilder {
	return f.filter(column, "eq", value)
}

// Neq filters rows where column does not equal value.
func (f *FilterBuilder) Neq(column string, value any) *FilterBuilder {
	return f.filter(column, "neq", value)
}

// Gt filters rows where column is greater than value.
func (f *FilterBuilder) Gt(column string, value any) *FilterBuilder {
	return f.filter(column, "gt", value)
}

// Lt filters rows where column is less than value.
func (f *FilterBuilder) Lt(column string, value any) *FilterBuilder {
	return f.filter(column, "lt", value)
}

// Like filters rows where column matches pattern.
func (f *FilterBuilder) Like(column string, pattern string) *FilterBuilder {
	return f.filter(column, "like", pattern)
}

// In filters rows where column is one of values. Values are joined with "," as is.
func (f *FilterBuilder) In(column string, values ...any) *FilterBuilder {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = operand(v)
	}
	return f.filter(column, "in", "("+strings.Join(parts, ",")+")")
}

// Order sorts by column, ascending or descending.
func (f *FilterBuilder) Order(column string, ascending bool) *FilterBuilder {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	f.params = append(f.params, param{key: "order", value: column + "." + dir})
	return f
}

// Limit caps the number of rows returned.
func (f *FilterBuilder) Limit(count int) *FilterBuilder {
	f.params = append(f.params, param{key: "limit", value: strconv.Itoa(count)})
	return f
}

// Offset skips count rows.
func (f *FilterBuilder) Offset(count int) *FilterBuilder {
	f.params = append(f.params, param{key: "offset", value: strconv.Itoa(count)})
	return f
}

// Select sets the column projection, "*" when no columns are given. The last call wins.
func (f *FilterBuilder) Select(columns ...string) *FilterBuilder {
	projection := strings.Join(columns, ",")
	if projection == "" {
		projection = "*"
	}
	replaced := false
	out := f.params[:0]
	for _, p := range f.params {
		if p.key == "select" {
			if replaced {
				continue
			}
			p.value = projection
			replaced = true
		}
		out = append(out, p)
	}
	f.params = out
	if !replaced {
		f.params = append(f.params, param{key: "select", value: projection})
	}
	return f
}

func (f *FilterBuilder) filter(column, op string, value any) *FilterBuilder {
	f.params = append(f.params, param{key: column, value: op + "." + operand(value)})
	return f
}

// operand renders a predicate value the way it appears after the operator prefix.
func operand(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Query returns the encoded query string in call order.
func (f *FilterBuilder) Query() string {
	var b strings.Builder
	for i, p := range f.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// Method returns the HTTP method fixed when the builder was created.
func (f *FilterBuilder) Method() string {
	return f.method
}

// Request builds the request descriptor without performing any I/O. Each call returns a new
// descriptor.
func (f *FilterBuilder) Request() (*transport.Request, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := *f.url
	u.RawQuery = f.Query()
	req := &transport.Request{
		URL:    u.String(),
		Method: f.method,
		Header: f.header.Clone(),
	}
	if f.body != nil {
		req.Body = append([]byte(nil), f.body...)
	}
	return req, nil
}

// Execute issues the request and resolves the response. Every call issues a new request,
// so a failed call can be retried without rebuilding the chain. A 204 response resolves to
// an empty list; a non-2xx response fails with a *transport.HTTPError whose message is the
// response body.
func (f *FilterBuilder) Execute(ctx context.Context) (json.RawMessage, error) {
	req, err := f.Request()
	if err != nil {
		return nil, err
	}
	resp, err := f.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return transport.Resolve(resp)
}

// ExecuteInto executes the request and decodes the result into out.
func (f *FilterBuilder) ExecuteInto(ctx context.Context, out any) error {
	raw, err := f.Execute(ctx)
	if err != nil {
		return err
	}
	return transport.Decode(raw, out)
}
