// Package finetest runs an in-memory fine backend for tests. It serves the table API under
// /db and the assistant API under /ai, records every request, and can be told to fail
// specific routes or to stream a scripted run.
package finetest

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	jsonitor "github.com/json-iterator/go"

	"github.com/fine-dev/fine-go/internal/common/middleware"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type failure struct {
	status    int
	body      string
	remaining int // negative means forever
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	tables   map[string][]Row
	threads  map[string]*thread
	order    []string
	failures map[string]*failure
	scripts  [][]string
	runs     int
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		tables:   make(map[string][]Row),
		threads:  make(map[string]*thread),
		failures: make(map[string]*failure),
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Use(middleware.PanicHandler)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.record)
	r.Use(s.inject)

	r.Route("/db", func(r chi.Router) {
		r.Use(middleware.SetTimeout(5 * time.Second))
		s.mountTables(r)
	})
	r.Route("/ai", s.mountAI)
	return r
}

// record stores a copy of every request before it is handled.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// inject answers with a configured failure instead of the real handler.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		f, ok := s.failures[key]
		if ok {
			if f.remaining > 0 {
				f.remaining--
				if f.remaining == 0 {
					delete(s.failures, key)
				}
			}
		}
		s.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
	})
}

// Fail makes every request to method and path answer with status and body.
func (s *Server) Fail(method, path string, status int, body string) {
	s.FailTimes(method, path, -1, status, body)
}

// FailTimes makes the next n requests to method and path answer with status and body.
func (s *Server) FailTimes(method, path string, n, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = &failure{status: status, body: body, remaining: n}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request{}, s.requests...)
}

// Last returns the most recent request.
func (s *Server) Last() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// Paths returns "METHOD /path" for every request, in order.
func (s *Server) Paths() []string {
	reqs := s.Requests()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Method + " " + r.Path
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitList(s string) []string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
