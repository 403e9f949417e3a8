package rest

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/fine-dev/fine-go/pkg/transport"
	"github.com/tidwall/sjson"
)

// QueryBuilder selects the HTTP verb for one table. Every call returns an independent
// FilterBuilder with its own copy of the URL and headers.
type QueryBuilder struct {
	transport *transport.Config
	url       *url.URL
	headers   transport.Headers
	err       error
}

// Select returns a GET builder projecting the given columns, "*" when none are given.
func (q *QueryBuilder) Select(columns ...string) *FilterBuilder {
	fb := q.newFilterBuilder(http.MethodGet, nil, nil)
	return fb.Select(columns...)
}

// Insert returns a POST builder whose body is values, a single record or a list of records.
func (q *QueryBuilder) Insert(values any) *FilterBuilder {
	body, err := encodeBody(values)
	return q.newFilterBuilder(http.MethodPost, body, err)
}

// Update returns a PATCH builder whose body is {"data": values}.
func (q *QueryBuilder) Update(values any) *FilterBuilder {
	body, err := encodeBody(values)
	if err == nil {
		if body == nil {
			body = []byte("null")
		}
		body, err = sjson.SetRawBytes([]byte(`{}`), "data", body)
		if err != nil {
			err = ErrEncodeBody.MsgErr(err.Error(), err)
		}
	}
	return q.newFilterBuilder(http.MethodPatch, body, err)
}

// Delete returns a DELETE builder without a body.
func (q *QueryBuilder) Delete() *FilterBuilder {
	return q.newFilterBuilder(http.MethodDelete, nil, nil)
}

func (q *QueryBuilder) newFilterBuilder(method string, body []byte, err error) *FilterBuilder {
	fb := &FilterBuilder{
		transport: q.transport,
		method:    method,
		header:    q.headers.Clone(),
		body:      body,
		err:       q.err,
	}
	if fb.err == nil {
		fb.err = err
	}
	if q.url != nil {
		u := *q.url
		fb.url = &u
	}
	if method != http.MethodGet {
		fb.header.Set("Content-Type", "application/json")
	}
	return fb
}

// encodeBody marshals values. A nil value means no body.
func encodeBody(values any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	switch v := values.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, ErrEncodeBody.Msg("rest: body is not valid JSON")
		}
		return append([]byte(nil), v...), nil
	case []byte:
		if !json.Valid(v) {
			return nil, ErrEncodeBody.Msg("rest: body is not valid JSON")
		}
		return append([]byte(nil), v...), nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, ErrEncodeBody.MsgErr("rest: "+err.Error(), err)
	}
	return b, nil
}
