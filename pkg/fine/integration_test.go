package fine_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/fine-dev/fine-go/internal/common/httpclient"
	"github.com/fine-dev/fine-go/internal/finetest"
	"github.com/fine-dev/fine-go/pkg/ai"
	"github.com/fine-dev/fine-go/pkg/fine"
	"github.com/fine-dev/fine-go/pkg/transport"
)

func newClient(t *testing.T, srv *finetest.Server) *fine.Client {
	t.Helper()
	hc := httpclient.NewClient(httpclient.StaticConfig{ServerURL: srv.URL, APIKey: "key"})
	c, err := fine.New(fine.Options{BaseURL: srv.URL}, hc.Do)
	require.NoError(t, err)
	return c
}

func TestTableRoundTrip(t *testing.T) {
	srv := finetest.New(t)
	srv.Seed("tasks",
		finetest.Row{"id": 1, "title": "write report", "done": false},
		finetest.Row{"id": 2, "title": "review", "done": true},
	)
	c := newClient(t, srv)
	ctx := context.Background()

	rows, err := c.Table("tasks").Select("id", "title").Eq("done", false).Execute(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"title":"write report"}]`, string(rows))
	assert.Equal(t, "Bearer key", srv.Last().Header.Get("Authorization"))

	inserted, err := c.Table("tasks").Insert(map[string]any{"id": 3, "title": "ship", "done": false}).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ship", gjson.GetBytes(inserted, "0.title").String())
	assert.Equal(t, "application/json", srv.Last().Header.Get("Content-Type"))

	updated, err := c.Table("tasks").Update(map[string]any{"done": true}).In("id", 1, 3).Execute(ctx)
	require.NoError(t, err)
	assert.Len(t, gjson.ParseBytes(updated).Array(), 2)
	assert.JSONEq(t, `{"data":{"done":true}}`, string(srv.Last().Body))

	deleted, err := c.Table("tasks").Delete().Eq("done", true).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(deleted))
	assert.Empty(t, srv.Rows("tasks"))
}

func TestTableFailureCarriesBody(t *testing.T) {
	srv := finetest.New(t)
	c := newClient(t, srv)

	_, err := c.Table("missing").Select().Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, "table missing not found", err.Error())

	var httpErr *transport.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

func TestStreamedRun(t *testing.T) {
	srv := finetest.New(t)
	srv.Script(
		"data: {\"type\":\"runStarted\",\"runId\":\"run_9\"}\n\ndata: {\"type\":\"token\",\"text\":\"caf\xc3",
		"\xa9\"}\n\n",
		"data: {\"type\":\"runCompleted\",\"runId\":\"run_9\"}\n\n",
	)
	c := newClient(t, srv)

	var mu sync.Mutex
	var text string
	var types []string
	s, err := c.AI.Message("asst_1", "hi").Stream(context.Background(), func(ev ai.Event) {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, ev.Type())
		text += ev.Get("text").String()
	})
	require.NoError(t, err)
	require.NoError(t, s.Wait())

	assert.Equal(t, []string{"runStarted", "token", "runCompleted"}, types)
	assert.Equal(t, "café", text)
	assert.Equal(t, "run_9", s.RunID())
	assert.Equal(t, "text/event-stream", srv.Last().Header.Get("Accept"))
}

func TestStreamedRunRejected(t *testing.T) {
	srv := finetest.New(t)
	srv.Fail(http.MethodPost, "/ai/run", http.StatusTooManyRequests, "quota exceeded")
	c := newClient(t, srv)

	var events []ai.Event
	_, err := c.AI.Message("asst_1", "hi").Stream(context.Background(), func(ev ai.Event) {
		events = append(events, ev)
	})
	require.Error(t, err)
	assert.Equal(t, "Failed to send message stream: quota exceeded", err.Error())
	require.Len(t, events, 1)
	assert.True(t, events[0].IsRunError())
}

func TestThreadLifecycle(t *testing.T) {
	srv := finetest.New(t)
	srv.AddThread("t1", map[string]any{"topic": "billing"})
	srv.AddThread("t2", nil)
	c := newClient(t, srv)
	ctx := context.Background()

	threads, err := c.AI.Threads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "t1", threads[0].ID)

	th := threads[0]
	_, err = th.Message("asst_1", []string{"hello", "there"}).Send(ctx)
	require.NoError(t, err)

	msgs, err := th.Messages(ctx)
	require.NoError(t, err)
	assert.Equal(t, "there", gjson.GetBytes(msgs, "0.content.1.text").String())

	_, err = th.Update(ctx, map[string]any{"topic": "refunds"})
	require.NoError(t, err)
	data, err := th.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refunds", gjson.GetBytes(data, "metadata.topic").String())

	require.NoError(t, th.Delete(ctx))
	assert.False(t, srv.HasThread("t1"))

	_, err = th.Data(ctx)
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch thread t1: thread t1 not found", err.Error())
}
