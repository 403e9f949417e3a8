package transport

import (
	"net/http"
	"sort"
	"strings"
)

// Header is a single header entry.
type Header struct {
	Key   string
	Value string
}

// Headers is the canonical header mapping: ordered, one entry per key, with case-insensitive
// lookup. Other shapes are converted at the boundary with HeadersFromMap, HeadersFromPairs and
// HeadersFromHTTP.
type Headers []Header

// Get returns the value for key, or "" when it is absent.
func (h Headers) Get(key string) string {
	for _, e := range h {
		if strings.EqualFold(e.Key, key) {
			return e.Value
		}
	}
	return ""
}

// Has reports whether key is present.
func (h Headers) Has(key string) bool {
	for _, e := range h {
		if strings.EqualFold(e.Key, key) {
			return true
		}
	}
	return false
}

// Set replaces the value for key in place, or appends it.
func (h *Headers) Set(key, value string) {
	for i, e := range *h {
		if strings.EqualFold(e.Key, key) {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Key: key, Value: value})
}

// Del removes key.
func (h *Headers) Del(key string) {
	out := (*h)[:0]
	for _, e := range *h {
		if !strings.EqualFold(e.Key, key) {
			out = append(out, e)
		}
	}
	*h = out
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	return append(Headers(nil), h...)
}

// Merge returns a copy of h with every entry of other set on top of it.
func (h Headers) Merge(other Headers) Headers {
	out := h.Clone()
	for _, e := range other {
		out.Set(e.Key, e.Value)
	}
	return out
}

// HTTP converts the mapping into a net/http header.
func (h Headers) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, e := range h {
		out.Set(e.Key, e.Value)
	}
	return out
}

// HeadersFromMap converts a plain map. Keys are sorted so the result is deterministic.
func HeadersFromMap(m map[string]string) Headers {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var h Headers
	for _, k := range keys {
		h.Set(k, m[k])
	}
	return h
}

// HeadersFromPairs converts a list of key/value pairs. Later pairs win for duplicate keys.
func HeadersFromPairs(pairs [][2]string) Headers {
	var h Headers
	for _, p := range pairs {
		h.Set(p[0], p[1])
	}
	return h
}

// HeadersFromHTTP converts a net/http header. Multi-valued keys are joined with ", ".
func HeadersFromHTTP(hdr http.Header) Headers {
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var h Headers
	for _, k := range keys {
		h.Set(k, strings.Join(hdr[k], ", "))
	}
	return h
}
