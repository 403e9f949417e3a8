package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadersSetGet(t *testing.T) {
	var h Headers
	h.Set("Content-Type", "text/plain")
	h.Set("X-Trace", "1")
	h.Set("content-type", "application/json")

	assert.Len(t, h, 2)
	assert.Equal(t, "application/json", h.Get("CONTENT-TYPE"))
	assert.Equal(t, "Content-Type", h[0].Key, "replacement keeps position and original key")
	assert.True(t, h.Has("x-trace"))
	assert.Equal(t, "", h.Get("missing"))

	h.Del("X-TRACE")
	assert.False(t, h.Has("X-Trace"))
	assert.Len(t, h, 1)
}

func TestHeadersBoundaryConversions(t *testing.T) {
	want := Headers{
		{Key: "Authorization", Value: "Bearer t"},
		{Key: "X-Client", Value: "fine-go"},
	}

	fromMap := HeadersFromMap(map[string]string{
		"X-Client":      "fine-go",
		"Authorization": "Bearer t",
	})
	assert.Equal(t, want, fromMap)

	fromPairs := HeadersFromPairs([][2]string{
		{"Authorization", "Bearer old"},
		{"X-Client", "fine-go"},
		{"authorization", "Bearer t"},
	})
	assert.Equal(t, "Bearer t", fromPairs.Get("Authorization"))
	assert.Len(t, fromPairs, 2)

	fromHTTP := HeadersFromHTTP(http.Header{
		"Authorization": {"Bearer t"},
		"X-Client":      {"fine-go"},
	})
	assert.Equal(t, want, fromHTTP)

	multi := HeadersFromHTTP(http.Header{"Accept": {"a", "b"}})
	assert.Equal(t, "a, b", multi.Get("Accept"))
}

func TestHeadersCloneMerge(t *testing.T) {
	base := Headers{{Key: "A", Value: "1"}}
	merged := base.Merge(Headers{{Key: "a", Value: "2"}, {Key: "B", Value: "3"}})

	assert.Equal(t, "1", base.Get("A"))
	assert.Equal(t, "2", merged.Get("A"))
	assert.Equal(t, "3", merged.Get("B"))

	var empty Headers
	assert.Nil(t, empty.Clone())

	hdr := merged.HTTP()
	assert.Equal(t, "2", hdr.Get("A"))
}
