package finetest

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func get(t *testing.T, s *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestTableQueries(t *testing.T) {
	s := New(t)
	s.Seed("tasks",
		Row{"id": 1, "title": "write report", "priority": 3, "status": "open"},
		Row{"id": 2, "title": "review", "priority": 1, "status": "blocked"},
		Row{"id": 3, "title": "final report", "priority": 5, "status": "done"},
	)

	tests := []struct {
		name  string
		query string
		ids   []int64
	}{
		{"all", "select=%2A", []int64{1, 2, 3}},
		{"eq", "status=eq.open", []int64{1}},
		{"neq", "status=neq.open", []int64{2, 3}},
		{"gt and lt", "priority=gt.1&priority=lt.5", []int64{1}},
		{"like", "title=like.%25report%25", []int64{1, 3}},
		{"in", "status=in.%28open%2Cdone%29", []int64{1, 3}},
		{"order desc", "order=priority.desc", []int64{3, 1, 2}},
		{"limit offset", "order=id.asc&limit=1&offset=1", []int64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, s, "/db/tables/tasks?"+tt.query)
			require.Equal(t, http.StatusOK, code, body)
			var ids []int64
			for _, id := range gjson.Get(body, "#.id").Array() {
				ids = append(ids, id.Int())
			}
			assert.Equal(t, tt.ids, ids)
		})
	}

	t.Run("projection", func(t *testing.T) {
		_, body := get(t, s, "/db/tables/tasks?select=id&status=eq.done")
		assert.JSONEq(t, `[{"id":3}]`, body)
	})

	t.Run("unknown table", func(t *testing.T) {
		code, body := get(t, s, "/db/tables/nope")
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "table nope not found", body)
	})
}

func TestFailureInjection(t *testing.T) {
	s := New(t)
	s.Seed("tasks")
	s.FailTimes(http.MethodGet, "/db/tables/tasks", 1, http.StatusServiceUnavailable, "try later")

	code, body := get(t, s, "/db/tables/tasks")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "try later", body)

	code, body = get(t, s, "/db/tables/tasks")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[]", body)
	assert.Equal(t, []string{"GET /db/tables/tasks", "GET /db/tables/tasks"}, s.Paths())
}

func TestScriptedStream(t *testing.T) {
	s := New(t)
	s.Script("data: {\"type\":\"a\"}\n\n", "data: {\"ty", "pe\":\"b\"}\n\n")

	resp, err := http.Post(s.URL+"/ai/run", "application/json",
		strings.NewReader(`{"assistantId":"a1","messages":[],"stream":true}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "data: {\"type\":\"a\"}\n\ndata: {\"type\":\"b\"}\n\n", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestCORSAllowsCredentials(t *testing.T) {
	s := New(t)
	req, err := http.NewRequest(http.MethodOptions, s.URL+"/ai/threads", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}
