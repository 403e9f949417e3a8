package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/fine-dev/fine-go/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	requests []*transport.Request
	status   int
	body     string
	err      error
}

func (r *recorder) do(ctx context.Context, req *transport.Request) (*http.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req.Clone())
	if r.err != nil {
		return nil, r.err
	}
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	body := r.body
	if body == "" && status != http.StatusNoContent {
		body = "[]"
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}, nil
}

func newTestClient(t *testing.T, rec *recorder) *Client {
	t.Helper()
	cfg, err := transport.New("https://app.example.com/db/", rec.do)
	require.NoError(t, err)
	return NewClient(cfg)
}

func queryOf(t *testing.T, req *transport.Request) url.Values {
	t.Helper()
	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	return u.Query()
}

func TestPredicatesAreAdditiveInCallOrder(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(t, rec)

	fb := c.Table("tasks").Select().
		Gt("priority", 1).
		Lt("priority", 5).
		Eq("done", false).
		Neq("owner", "bob").
		Like("title", "%report%").
		In("status", "open", "blocked")

	req, err := fb.Request()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(req.URL, "https://app.example.com/db/tables/tasks?"))

	q := queryOf(t, req)
	assert.Equal(t, []string{"gt.1", "lt.5"}, q["priority"])
	assert.Equal(t, []string{"eq.false"}, q["done"])
	assert.Equal(t, []string{"neq.bob"}, q["owner"])
	assert.Equal(t, []string{"like.%report%"}, q["title"])
	assert.Equal(t, []string{"in.(open,blocked)"}, q["status"])
	assert.Equal(t, []string{"*"}, q["select"])

	assert.Equal(t,
		"select=%2A&priority=gt.1&priority=lt.5&done=eq.false&owner=neq.bob&title=like.%25report%25&status=in.%28open%2Cblocked%29",
		fb.Query())
}

func TestSelectReplaces(t *testing.T) {
	c := newTestClient(t, &recorder{})
	fb := c.Table("tasks").Select("id").Eq("done", true).Select("id", "title").Select("title")

	req, err := fb.Request()
	require.NoError(t, err)
	q := queryOf(t, req)
	assert.Equal(t, []string{"title"}, q["select"])
	assert.Equal(t, 1, strings.Count(fb.Query(), "select="))
}

func TestOrderLimitOffset(t *testing.T) {
	c := newTestClient(t, &recorder{})
	fb := c.Table("tasks").Select("*").
		Order("created_at", false).
		Order("title", true).
		Limit(10).
		Offset(20)

	req, err := fb.Request()
	require.NoError(t, err)
	q := queryOf(t, req)
	assert.Equal(t, []string{"created_at.desc", "title.asc"}, q["order"])
	assert.Equal(t, []string{"10"}, q["limit"])
	assert.Equal(t, []string{"20"}, q["offset"])
}

func TestOperandRendering(t *testing.T) {
	c := newTestClient(t, &recorder{})
	fb := c.Table("t").Delete().Eq("a", nil).Eq("b", 1.5).In("c", 1, "x", true)
	req, err := fb.Request()
	require.NoError(t, err)
	q := queryOf(t, req)
	assert.Equal(t, []string{"eq.null"}, q["a"])
	assert.Equal(t, []string{"eq.1.5"}, q["b"])
	assert.Equal(t, []string{"in.(1,x,true)"}, q["c"])
}

func TestVerbs(t *testing.T) {
	tests := []struct {
		name        string
		build       func(q *QueryBuilder) *FilterBuilder
		method      string
		body        string
		contentType string
	}{
		{
			name:   "select",
			build:  func(q *QueryBuilder) *FilterBuilder { return q.Select() },
			method: http.MethodGet,
		},
		{
			name:        "insert single",
			build:       func(q *QueryBuilder) *FilterBuilder { return q.Insert(map[string]any{"title": "a"}) },
			method:      http.MethodPost,
			body:        `{"title":"a"}`,
			contentType: "application/json",
		},
		{
			name: "insert list",
			build: func(q *QueryBuilder) *FilterBuilder {
				return q.Insert([]map[string]any{{"title": "a"}, {"title": "b"}})
			},
			method:      http.MethodPost,
			body:        `[{"title":"a"},{"title":"b"}]`,
			contentType: "application/json",
		},
		{
			name:        "update wraps values",
			build:       func(q *QueryBuilder) *FilterBuilder { return q.Update(map[string]any{"done": true}) },
			method:      http.MethodPatch,
			body:        `{"data":{"done":true}}`,
			contentType: "application/json",
		},
		{
			name:        "update raw json",
			build:       func(q *QueryBuilder) *FilterBuilder { return q.Update([]byte(`{"done":false}`)) },
			method:      http.MethodPatch,
			body:        `{"data":{"done":false}}`,
			contentType: "application/json",
		},
		{
			name:        "delete",
			build:       func(q *QueryBuilder) *FilterBuilder { return q.Delete() },
			method:      http.MethodDelete,
			contentType: "application/json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &recorder{})
			req, err := tt.build(c.Table("tasks")).Request()
			require.NoError(t, err)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.contentType, req.Header.Get("Content-Type"))
			if tt.body == "" {
				assert.Nil(t, req.Body)
			} else {
				assert.JSONEq(t, tt.body, string(req.Body))
			}
		})
	}
}

func TestSiblingBuildersDoNotShareState(t *testing.T) {
	c := newTestClient(t, &recorder{})
	q := c.Table("tasks")

	first := q.Select("id").Eq("done", true)
	second := q.Delete().Eq("id", 7)
	third := q.Select()

	r1, _ := first.Request()
	r2, _ := second.Request()
	r3, _ := third.Request()

	assert.Empty(t, queryOf(t, r1)["id"])
	assert.Empty(t, queryOf(t, r2)["done"])
	assert.Empty(t, queryOf(t, r2)["select"])
	assert.Equal(t, url.Values{"select": {"*"}}, queryOf(t, r3))
	assert.Empty(t, r3.Header.Get("Content-Type"))
}

func TestExecuteIssuesFreshRequestEachTime(t *testing.T) {
	rec := &recorder{body: `[{"id":1}]`}
	c := newTestClient(t, rec)
	fb := c.Table("tasks").Select().Eq("id", 1)

	for i := 0; i < 2; i++ {
		raw, err := fb.Execute(context.Background())
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":1}]`, string(raw))
	}
	require.Len(t, rec.requests, 2)
	assert.Equal(t, rec.requests[0], rec.requests[1])
	assert.NotSame(t, rec.requests[0], rec.requests[1])
}

func TestExecuteNoIOUntilCalled(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(t, rec)
	fb := c.Table("tasks").Insert(map[string]any{"a": 1}).Eq("x", 1)
	_, err := fb.Request()
	require.NoError(t, err)
	assert.Empty(t, rec.requests)
}

func TestExecuteResponseClassification(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		rec := &recorder{status: http.StatusNoContent, body: `{"ignored":1}`}
		raw, err := newTestClient(t, rec).Table("tasks").Delete().Eq("id", 1).Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "[]", string(raw))
	})

	t.Run("failure carries body text", func(t *testing.T) {
		rec := &recorder{status: http.StatusForbidden, body: "permission denied for table tasks"}
		_, err := newTestClient(t, rec).Table("tasks").Select().Execute(context.Background())
		require.Error(t, err)
		assert.Equal(t, "permission denied for table tasks", err.Error())
		assert.ErrorIs(t, err, transport.ErrResponse)
	})

	t.Run("transport failure", func(t *testing.T) {
		cause := errors.New("network down")
		rec := &recorder{err: cause}
		_, err := newTestClient(t, rec).Table("tasks").Select().Execute(context.Background())
		assert.ErrorIs(t, err, transport.ErrTransport)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("request function without response", func(t *testing.T) {
		cfg, err := transport.New("https://app.example.com/db", func(ctx context.Context, req *transport.Request) (*http.Response, error) {
			return nil, nil
		})
		require.NoError(t, err)
		_, err = NewClient(cfg).Table("t").Select().Execute(context.Background())
		assert.ErrorIs(t, err, transport.ErrTransport)
	})

	t.Run("decode into", func(t *testing.T) {
		rec := &recorder{body: `[{"id":3,"title":"x"}]`}
		var rows []struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
		}
		err := newTestClient(t, rec).Table("tasks").Select().ExecuteInto(context.Background(), &rows)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 3, rows[0].ID)
	})
}

func TestBuilderErrors(t *testing.T) {
	c := newTestClient(t, &recorder{})

	_, err := c.Table("").Select().Execute(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = c.Table("tasks").Insert(map[string]any{"ch": make(chan int)}).Request()
	assert.ErrorIs(t, err, ErrEncodeBody)

	_, err = c.Table("tasks").Insert(json.RawMessage(`{`)).Request()
	assert.ErrorIs(t, err, ErrEncodeBody)
}

func TestClientHeaders(t *testing.T) {
	rec := &recorder{}
	cfg, err := transport.New("https://app.example.com/db", rec.do)
	require.NoError(t, err)
	c := NewClient(cfg, WithHeaders(transport.Headers{{Key: "X-App", Value: "dash"}}))

	req, err := c.Table("tasks").Update(map[string]any{"a": 1}).Request()
	require.NoError(t, err)
	assert.Equal(t, "dash", req.Header.Get("X-App"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}
