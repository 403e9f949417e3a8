// Package httpclient provides the HTTP request function used by the fine CLI. It injects
// credentials from a Configurator, keeps session cookies across requests, tags every request
// with an X-Request-ID and hands the response back untouched so that buffered and streamed
// calls share one code path.
package httpclient

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fine-dev/fine-go/internal/common/apperrors"
	"github.com/fine-dev/fine-go/internal/common/logtrace"
	"github.com/fine-dev/fine-go/internal/common/uuid"
	"github.com/fine-dev/fine-go/pkg/transport"
)

const RequestIDHeader = "X-Request-ID"

var ErrInvalidRequest = apperrors.New("httpclient: unable to build request")

// HTTPClient performs requests on behalf of the fine SDK clients.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	DisableCertValidation bool          // If true, skips SSL certificate validation
	Timeout               time.Duration // Zero means no timeout, which streamed runs need
	Logger                *zerolog.Logger
}

// NewClient creates a new HTTP client using the provided configuration.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}
	return NewClientWithOptions(config, clientOpts)
}

// NewClientWithOptions creates a new HTTP client using the provided configuration and options.
func NewClientWithOptions(config Configurator, opts ClientOptions) *HTTPClient {
	// cookiejar.New only fails on a bad PublicSuffixList, and none is passed
	jar, _ := cookiejar.New(nil)
	httpClient := &http.Client{
		Jar:     jar,
		Timeout: opts.Timeout,
	}

	if opts.DisableCertValidation {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &HTTPClient{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Do implements transport.RequestFunc. The Authorization header is set from the session
// token while it is valid and from the API key otherwise, unless the request already carries
// one. The caller owns the response body.
func (c *HTTPClient) Do(ctx context.Context, r *transport.Request) (*http.Response, error) {
	req, err := r.HTTPRequest(ctx)
	if err != nil {
		return nil, ErrInvalidRequest.MsgErr(err.Error(), err)
	}

	requestID := logtrace.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewRequestID()
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, requestID)
	}

	if req.Header.Get("Authorization") == "" {
		if credential := c.credential(); credential != "" {
			req.Header.Set("Authorization", "Bearer "+credential)
		}
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Str("request_id", req.Header.Get(RequestIDHeader)).
			Msg("request failed")
		return nil, err
	}
	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Str("request_id", req.Header.Get(RequestIDHeader)).
		Dur("elapsed", c.now().Sub(start)).
		Msg("request completed")
	return resp, nil
}

// credential picks the bearer credential: the token while it has not expired, else the API key.
func (c *HTTPClient) credential() string {
	token := c.config.GetToken()
	if token != "" {
		expiry := c.config.GetTokenExpiry()
		if expiry.IsZero() || c.now().Before(expiry) {
			return token
		}
		c.logger.Debug().Time("expiry", expiry).Msg("session token expired, falling back to API key")
	}
	return c.config.GetAPIKey()
}

// RequestFunc returns c.Do as a transport.RequestFunc.
func (c *HTTPClient) RequestFunc() transport.RequestFunc {
	return c.Do
}

var _ transport.RequestFunc = (&HTTPClient{}).Do
