package llm

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v5"
	"github.com/go-logr/logr"
	"github.com/openai/openai-go"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/config"
	apperrors "github.com/xaviserrafigueras/RedAI/pkg/cortex/errors"
)

// RetryPolicy bounds retries of failed completions
type RetryPolicy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration
}

// PolicyFromConfig converts the configured retry settings (seconds) into a RetryPolicy
func PolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		MinWait:     time.Duration(cfg.MinWait) * time.Second,
		MaxWait:     time.Duration(cfg.MaxWait) * time.Second,
	}
}

type retryClient struct {
	next   Client
	policy RetryPolicy
	logger logr.Logger
}

// WithRetry wraps a client with exponential backoff. Only rate limits,
// server errors and transport failures are retried.
func WithRetry(next Client, policy RetryPolicy, logger logr.Logger) Client {
	if policy.MaxAttempts <= 1 {
		return next
	}
	return &retryClient{next: next, policy: policy, logger: logger.WithName("llm-retry")}
}

func (c *retryClient) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	b := backoff.NewExponentialBackOff()
	if c.policy.MinWait > 0 {
		b.InitialInterval = c.policy.MinWait
	}
	if c.policy.MaxWait > 0 {
		b.MaxInterval = c.policy.MaxWait
	}

	attempt := 0
	return backoff.Retry(ctx, func() (string, error) {
		attempt++
		text, err := c.next.Complete(ctx, messages, temperature)
		if err == nil {
			return text, nil
		}
		if !Retryable(err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.policy.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Info("Retrying LLM call", "model", c.next.ModelName(), "attempt", attempt, "wait", wait.String(), "error", err.Error())
		}),
	)
}

func (c *retryClient) ModelName() string {
	return c.next.ModelName()
}

// Retryable reports whether a completion error is worth retrying
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var oaErr *openai.Error
	if stderrors.As(err, &oaErr) {
		return retryableStatus(oaErr.StatusCode)
	}
	var anErr *anthropic.Error
	if stderrors.As(err, &anErr) {
		return retryableStatus(anErr.StatusCode)
	}

	// Errors raised by the adapters themselves carry no cause and are final
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) && appErr.Cause == nil {
		return false
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= http.StatusInternalServerError
}
