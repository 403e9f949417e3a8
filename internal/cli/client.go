package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/fine-dev/fine-go/internal/common/httpclient"
	"github.com/fine-dev/fine-go/pkg/fine"
	"github.com/fine-dev/fine-go/pkg/transport"
)

// retryDelay is the base delay between attempts; tests shorten it.
var retryDelay = 500 * time.Millisecond

// newFineClient builds an SDK client from the loaded configuration.
func newFineClient() (*fine.Client, error) {
	cfg := GetConfig()
	logger := log.Logger
	hc := httpclient.NewClient(cfg, httpclient.ClientOptions{Logger: &logger})
	return fine.New(fine.Options{
		BaseURL: cfg.GetServerURL(),
		RestURL: cfg.RestURL,
		AIURL:   cfg.AIURL,
		Logger:  &logger,
	}, hc.Do)
}

// retryable reports whether a failed call may succeed when issued again: the request never
// got a response, or the server answered 429 or 5xx.
func retryable(err error) bool {
	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return errors.Is(err, transport.ErrTransport)
}

// withRetries runs fn once plus up to retries more times while it fails with a retryable
// error.
func withRetries(ctx context.Context, retries uint, fn func() error) error {
	if retries == 0 {
		return fn()
	}
	attempt := 0
	return retry.Do(
		func() error {
			attempt++
			err := fn()
			if err != nil {
				log.Debug().Err(err).Int("attempt", attempt).Msg("attempt failed")
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(retries+1),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
	)
}
