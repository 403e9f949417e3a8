package fine

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fine-dev/fine-go/pkg/transport"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    Options
		wantErr bool
	}{
		{
			name: "base url derives every service",
			opts: Options{BaseURL: "https://app.example.com/"},
			want: Options{
				BaseURL: "https://app.example.com/",
				RestURL: "https://app.example.com/db",
				AuthURL: "https://app.example.com/auth",
				AIURL:   "https://app.example.com/ai",
			},
		},
		{
			name: "explicit service url overrides",
			opts: Options{BaseURL: "https://app.example.com", AIURL: "https://ai.example.com"},
			want: Options{
				BaseURL: "https://app.example.com",
				RestURL: "https://app.example.com/db",
				AuthURL: "https://app.example.com/auth",
				AIURL:   "https://ai.example.com",
			},
		},
		{
			name: "explicit services without base",
			opts: Options{RestURL: "http://localhost:1/db", AuthURL: "http://localhost:1/auth", AIURL: "http://localhost:2"},
			want: Options{RestURL: "http://localhost:1/db", AuthURL: "http://localhost:1/auth", AIURL: "http://localhost:2"},
		},
		{
			name:    "nothing set",
			opts:    Options{},
			wantErr: true,
		},
		{
			name:    "partial services without base",
			opts:    Options{RestURL: "http://localhost:1/db"},
			wantErr: true,
		},
		{
			name:    "malformed base",
			opts:    Options{BaseURL: "not a url"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOptions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.opts.Resolved())
		})
	}
}

func TestNew(t *testing.T) {
	var urls []string
	var auth []string
	do := func(ctx context.Context, req *transport.Request) (*http.Response, error) {
		urls = append(urls, req.URL)
		auth = append(auth, req.Header.Get("Authorization"))
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"data":[]}`))}, nil
	}

	c, err := New(Options{
		BaseURL: "https://app.example.com",
		Headers: transport.HeadersFromMap(map[string]string{"Authorization": "Bearer t"}),
	}, do)
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/auth", c.AuthURL)

	_, err = c.Table("tasks").Select().Eq("id", 1).Execute(context.Background())
	require.NoError(t, err)
	_, err = c.AI.Threads(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://app.example.com/db/tables/tasks?select=%2A&id=eq.1",
		"https://app.example.com/ai/threads",
	}, urls)
	assert.Equal(t, []string{"Bearer t", "Bearer t"}, auth)
}

func TestNewRequiresRequestFunc(t *testing.T) {
	_, err := New(Options{BaseURL: "https://app.example.com"}, nil)
	assert.ErrorIs(t, err, transport.ErrNoRequestFunc)

	_, err = New(Options{}, func(context.Context, *transport.Request) (*http.Response, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
