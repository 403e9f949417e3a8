package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/fine-dev/fine-go/pkg/transport"
)

// Thread is a handle on a conversation thread. Its data is fetched on first use and cached
// until Update replaces it or Delete clears it.
type Thread struct {
	ID string

	client *Client
	cache  dataCache
}

type dataCache struct {
	mu    sync.Mutex
	data  json.RawMessage
	valid bool
}

func (c *dataCache) load() (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data, c.valid
}

func (c *dataCache) store(data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.valid = true
}

func (c *dataCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.valid = false
}

// Threads lists the caller's threads. Each returned handle starts with its data cached.
func (c *Client) Threads(ctx context.Context) ([]*Thread, error) {
	raw, err := c.roundTrip(ctx, c.newRequest(http.MethodGet, nil, "threads"))
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to fetch threads")
		return nil, ErrThread.MsgErr("Failed to fetch threads: "+err.Error(), err)
	}
	list := gjson.GetBytes(raw, "data")
	if !list.IsArray() {
		err := transport.ErrDecode.Msg("response has no data list")
		c.logger.Error().Err(err).Msg("failed to fetch threads")
		return nil, ErrThread.MsgErr("Failed to fetch threads: "+err.Error(), err)
	}
	threads := []*Thread{}
	list.ForEach(func(_, item gjson.Result) bool {
		t := c.Thread(item.Get("id").String())
		t.cache.store(json.RawMessage(item.Raw))
		threads = append(threads, t)
		return true
	})
	return threads, nil
}

// Thread returns a handle on the thread with the given id without contacting the service.
func (c *Client) Thread(id string) *Thread {
	return &Thread{ID: id, client: c}
}

func (c *Client) roundTrip(ctx context.Context, req *transport.Request) (json.RawMessage, error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return transport.Resolve(resp)
}

// request performs a call against /threads/{id}[/endpoint]. Failures are logged and returned
// as "<action>: <cause>".
func (t *Thread) request(ctx context.Context, action, method string, body any, endpoint ...string) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = codec.Marshal(body); err != nil {
			return nil, ErrThread.MsgErr(action+": "+err.Error(), err)
		}
	}
	path := append([]string{"threads", url.PathEscape(t.ID)}, endpoint...)
	raw, err := t.client.roundTrip(ctx, t.client.newRequest(method, payload, path...))
	if err != nil {
		t.client.logger.Error().Err(err).Str("thread_id", t.ID).Msg(action)
		return nil, ErrThread.MsgErr(action+": "+err.Error(), err)
	}
	return raw, nil
}

// Data returns the thread's data, fetching it when nothing is cached.
func (t *Thread) Data(ctx context.Context) (json.RawMessage, error) {
	if data, ok := t.cache.load(); ok {
		return data, nil
	}
	raw, err := t.request(ctx, "Failed to fetch thread "+t.ID, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	t.cache.store(raw)
	return raw, nil
}

// Cached reports whether the thread's data is currently cached.
func (t *Thread) Cached() bool {
	_, ok := t.cache.load()
	return ok
}

// Messages returns the thread's messages. They are never cached.
func (t *Thread) Messages(ctx context.Context) (json.RawMessage, error) {
	action := "Failed to fetch messages for thread " + t.ID
	raw, err := t.request(ctx, action, http.MethodGet, nil, "messages")
	if err != nil {
		return nil, err
	}
	data := gjson.GetBytes(raw, "data")
	if !data.IsArray() {
		err := transport.ErrDecode.Msg("response has no data list")
		t.client.logger.Error().Err(err).Str("thread_id", t.ID).Msg(action)
		return nil, ErrThread.MsgErr(action+": "+err.Error(), err)
	}
	return json.RawMessage(data.Raw), nil
}

// Update replaces the thread's metadata. The service's reply becomes the cached data.
func (t *Thread) Update(ctx context.Context, metadata map[string]any) (json.RawMessage, error) {
	raw, err := t.request(ctx, "Failed to update thread "+t.ID, http.MethodPost, map[string]any{"metadata": metadata})
	if err != nil {
		return nil, err
	}
	t.cache.store(raw)
	return raw, nil
}

// Delete removes the thread and clears the cache.
func (t *Thread) Delete(ctx context.Context) error {
	if _, err := t.request(ctx, "Failed to delete thread "+t.ID, http.MethodDelete, nil); err != nil {
		return err
	}
	t.cache.invalidate()
	return nil
}

// Message prepares a message to assistantID inside this thread.
func (t *Thread) Message(assistantID string, content any) *Message {
	return newMessage(t.client, assistantID, t.ID, content)
}
