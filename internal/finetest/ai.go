package finetest

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fine-dev/fine-go/internal/common/httpx"
)

type thread struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
	messages []any
}

type runRequest struct {
	AssistantID string `json:"assistantId"`
	Messages    []struct {
		Role    string           `json:"role"`
		Content []map[string]any `json:"content"`
	} `json:"messages"`
	ThreadID string         `json:"threadId"`
	Metadata map[string]any `json:"metadata"`
	Stream   bool           `json:"stream"`
}

// AddThread creates a thread with optional messages.
func (s *Server) AddThread(id string, metadata map[string]any, messages ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		s.order = append(s.order, id)
	}
	s.threads[id] = &thread{ID: id, Metadata: metadata, messages: messages}
}

// HasThread reports whether the thread exists.
func (s *Server) HasThread(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.threads[id]
	return ok
}

// Script queues the raw body chunks of the next streamed run. Each chunk is flushed on its
// own, so events can be split across chunks deliberately. Without a script a streamed run
// echoes the message text as token events.
func (s *Server) Script(chunks ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, chunks)
}

func (s *Server) mountAI(r chi.Router) {
	r.Post("/run", s.run)
	r.Get("/threads", httpx.WrapHttpRsp(s.listThreads))
	r.Get("/threads/{id}", httpx.WrapHttpRsp(s.getThread))
	r.Post("/threads/{id}", httpx.WrapHttpRsp(s.updateThread))
	r.Delete("/threads/{id}", httpx.WrapHttpRsp(s.deleteThread))
	r.Get("/threads/{id}/messages", httpx.WrapHttpRsp(s.threadMessages))
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		httpx.ErrUnableToParseReqData().Send(w)
		return
	}
	if req.AssistantID == "" {
		httpx.ErrInvalidRequest("assistantId is required").Send(w)
		return
	}

	s.mu.Lock()
	s.runs++
	runID := fmt.Sprintf("run_%d", s.runs)
	var t *thread
	if req.ThreadID != "" {
		t = s.threads[req.ThreadID]
	}
	if t != nil {
		for _, m := range req.Messages {
			t.messages = append(t.messages, map[string]any{"role": m.Role, "content": m.Content})
		}
	}
	var script []string
	if req.Stream && len(s.scripts) > 0 {
		script, s.scripts = s.scripts[0], s.scripts[1:]
	}
	s.mu.Unlock()

	if req.ThreadID != "" && t == nil {
		httpx.ErrNotFound("thread " + req.ThreadID).Send(w)
		return
	}

	var text string
	for _, m := range req.Messages {
		for _, part := range m.Content {
			if txt, ok := part["text"].(string); ok {
				text += txt
			}
		}
	}

	if !req.Stream {
		httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]any{
			"runId":       runID,
			"assistantId": req.AssistantID,
			"threadId":    req.ThreadID,
			"messages": []any{map[string]any{
				"role":    "assistant",
				"content": []any{map[string]any{"type": "text", "text": text}},
			}},
		})
		return
	}

	if script == nil {
		script = []string{
			event(map[string]any{"type": "runStarted", "runId": runID}),
			event(map[string]any{"type": "token", "runId": runID, "text": text}),
			event(map[string]any{"type": "runCompleted", "runId": runID}),
		}
	}
	httpx.WrapStreamHandler(func(r *http.Request) (*httpx.StreamResponse, error) {
		next := 0
		return &httpx.StreamResponse{
			StatusCode:  http.StatusOK,
			ContentType: "text/event-stream",
			WriteChunk: func(w io.Writer) error {
				if next >= len(script) {
					return io.EOF
				}
				chunk := script[next]
				next++
				_, err := io.WriteString(w, chunk)
				return err
			},
		}, nil
	})(w, r)
}

func event(v map[string]any) string {
	b, _ := json.Marshal(v)
	return "data: " + string(b) + "\n\n"
}

func (s *Server) listThreads(r *http.Request) (*httpx.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := make([]*thread, 0, len(s.order))
	for _, id := range s.order {
		data = append(data, s.threads[id])
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: map[string]any{"data": data}}, nil
}

func (s *Server) lookup(r *http.Request) (*thread, error) {
	id := chi.URLParam(r, "id")
	t, ok := s.threads[id]
	if !ok {
		return nil, httpx.ErrNotFound("thread " + id)
	}
	return t, nil
}

func (s *Server) getThread(r *http.Request) (*httpx.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(r)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: t}, nil
}

func (s *Server) updateThread(r *http.Request) (*httpx.Response, error) {
	var body struct {
		Metadata map[string]any `json:"metadata"`
	}
	if err := httpx.GetRequestData(r, &body); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(r)
	if err != nil {
		return nil, err
	}
	t.Metadata = body.Metadata
	return &httpx.Response{StatusCode: http.StatusOK, Response: t}, nil
}

func (s *Server) deleteThread(r *http.Request) (*httpx.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(r)
	if err != nil {
		return nil, err
	}
	delete(s.threads, t.ID)
	for i, id := range s.order {
		if id == t.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: map[string]any{"id": t.ID, "deleted": true}}, nil
}

func (s *Server) threadMessages(r *http.Request) (*httpx.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(r)
	if err != nil {
		return nil, err
	}
	msgs := t.messages
	if msgs == nil {
		msgs = []any{}
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: map[string]any{"data": msgs}}, nil
}
