package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestNew(t *testing.T) {
	do := func(ctx context.Context, req *Request) (*http.Response, error) { return nil, nil }

	_, err := New("https://example.com", nil)
	assert.ErrorIs(t, err, ErrNoRequestFunc)

	_, err = New("  ", do)
	assert.ErrorIs(t, err, ErrInvalidBaseURL)

	cfg, err := New("https://example.com/db/", do)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/db", cfg.BaseURL())
	assert.Equal(t, "https://example.com/db/tables/tasks", cfg.URL("tables", "/tasks/"))
	assert.Equal(t, "https://example.com/db", cfg.URL())
}

func TestConfigDoWrapsTransportFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	cfg, err := New("https://example.com", func(ctx context.Context, req *Request) (*http.Response, error) {
		return nil, cause
	})
	require.NoError(t, err)

	_, err = cfg.Do(context.Background(), &Request{URL: cfg.URL(), Method: http.MethodGet})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause.Error(), err.Error())
}

func TestConfigDoRejectsMissingResponse(t *testing.T) {
	cfg, err := New("https://example.com", func(ctx context.Context, req *Request) (*http.Response, error) {
		return nil, nil
	})
	require.NoError(t, err)

	resp, err := cfg.Do(context.Background(), &Request{URL: cfg.URL(), Method: http.MethodGet})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "request function returned no response", err.Error())
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		want    string
		wantErr error
		errText string
	}{
		{name: "json body", code: http.StatusOK, body: `[{"id":1}]`, want: `[{"id":1}]`},
		{name: "created", code: http.StatusCreated, body: `{"id":2}`, want: `{"id":2}`},
		{name: "no content", code: http.StatusNoContent, body: "", want: `[]`},
		{name: "no content ignores body", code: http.StatusNoContent, body: `{"ignored":true}`, want: `[]`},
		{name: "bad request", code: http.StatusBadRequest, body: "column foo does not exist", wantErr: ErrResponse, errText: "column foo does not exist"},
		{name: "server error", code: http.StatusInternalServerError, body: `{"error":"boom"}`, wantErr: ErrResponse, errText: `{"error":"boom"}`},
		{name: "redirect is not success", code: http.StatusFound, body: "moved", wantErr: ErrResponse, errText: "moved"},
		{name: "invalid json", code: http.StatusOK, body: "<html>", wantErr: ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Resolve(response(tt.code, tt.body))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.errText != "" {
					assert.Equal(t, tt.errText, err.Error())
					var httpErr *HTTPError
					require.True(t, errors.As(err, &httpErr))
					assert.Equal(t, tt.code, httpErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestResolveInto(t *testing.T) {
	var rows []map[string]any
	require.NoError(t, ResolveInto(response(http.StatusOK, `[{"title":"a"}]`), &rows))
	assert.Equal(t, "a", rows[0]["title"])

	var obj struct{ ID int }
	err := ResolveInto(response(http.StatusOK, `[1,2]`), &obj)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCheckStatus(t *testing.T) {
	assert.NoError(t, CheckStatus(response(http.StatusOK, "data: {}\n\n")))

	err := CheckStatus(response(http.StatusUnauthorized, "not signed in"))
	assert.ErrorIs(t, err, ErrResponse)
	assert.Equal(t, "not signed in", err.Error())
}

func TestRequestHTTPRequest(t *testing.T) {
	req := &Request{
		URL:    "https://example.com/db/tables/tasks?done=eq.true",
		Method: http.MethodPatch,
		Header: HeadersFromPairs([][2]string{{"Content-Type", "application/json"}}),
		Body:   []byte(`{"data":{"done":false}}`),
	}
	hreq, err := req.HTTPRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, hreq.Method)
	assert.Equal(t, "application/json", hreq.Header.Get("Content-Type"))
	body, _ := io.ReadAll(hreq.Body)
	assert.Equal(t, `{"data":{"done":false}}`, string(body))

	get := &Request{URL: "https://example.com", Method: http.MethodGet}
	hreq, err = get.HTTPRequest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, hreq.Body)
}

func TestRequestClone(t *testing.T) {
	req := &Request{
		URL:    "https://example.com",
		Method: http.MethodPost,
		Header: Headers{{Key: "A", Value: "1"}},
		Body:   []byte("x"),
	}
	cp := req.Clone()
	cp.Header.Set("A", "2")
	cp.Body[0] = 'y'
	assert.Equal(t, "1", req.Header.Get("A"))
	assert.Equal(t, "x", string(req.Body))
}
