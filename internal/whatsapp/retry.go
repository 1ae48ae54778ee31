package whatsapp

import (
	"context"

	"github.com/rytflow/rytflow/internal/common"
	"github.com/rytflow/rytflow/internal/service"
)

// RetryingSender wraps a Sender with backoff retries. Rate limits and
// transport failures are retried; permanent API rejections are not.
type RetryingSender struct {
	inner Sender
	opts  service.RetryOptions
}

// NewRetryingSender decorates a sender with the given retry policy. Zero
// options take the defaults.
func NewRetryingSender(inner Sender, opts service.RetryOptions) *RetryingSender {
	return &RetryingSender{inner: inner, opts: opts}
}

// Send delegates to the wrapped sender, retrying retryable failures.
func (s *RetryingSender) Send(ctx context.Context, to, body string) (*SendResult, error) {
	var result *SendResult
	err := common.WithRetry(ctx, func() error {
		r, err := s.inner.Send(ctx, to, body)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, s.opts)
	if err != nil {
		return nil, err
	}
	return result, nil
}
