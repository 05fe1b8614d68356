package llm

import (
	"context"
	"errors"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/metrics"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
)

type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func PolicyFromSettings(s config.LLMSettings) RetryPolicy {
	return RetryPolicy{MaxRetries: s.MaxRetries, BaseDelay: s.BackoffBase, MaxDelay: s.BackoffMax}
}

// Delay is the wait after the given failed attempt (1-based): base doubled per
// attempt, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Client wraps a Provider with the retry policy.
type Client struct {
	provider     Provider
	policy       RetryPolicy
	defaultModel string
	logger       *logger_i.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewClient(provider Provider, defaultModel string, policy RetryPolicy) *Client {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Client{
		provider:     provider,
		policy:       policy,
		defaultModel: defaultModel,
		logger:       logger_i.NewLogger("CompletionClient"),
		sleep:        sleepContext,
	}
}

func (c *Client) DefaultModel() string {
	return c.defaultModel
}

// Complete returns the raw completion text. Transient failures are retried up
// to MaxRetries times; the last one is returned once the budget is spent.
func (c *Client) Complete(ctx context.Context, prompt string, model string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}
	name := c.provider.Name()
	log := logger_i.FromContext(ctx, "CompletionClient").With("provider", name, "model", model)

	attempts := c.policy.MaxRetries + 1
	var lastErr *TransientAPIError
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		text, err := c.provider.Complete(ctx, prompt, model)
		metrics.CaptureExecutionMetrics("llm_completion", time.Since(start))
		if err == nil {
			metrics.CaptureCompletionAttempt(name, "ok")
			if attempt > 1 {
				log.Info("completion succeeded after retry", "attempt", attempt)
			}
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.CaptureCompletionAttempt(name, "cancelled")
			return "", ctxErr
		}

		var fatal *FatalAPIError
		var transient *TransientAPIError
		switch {
		case errors.As(err, &transient):
		case errors.As(err, &fatal):
			metrics.CaptureCompletionAttempt(name, "fatal")
			log.Error("completion rejected", "status", fatal.StatusCode, "error", err)
			return "", fatal
		default:
			metrics.CaptureCompletionAttempt(name, "fatal")
			log.Error("unclassified completion failure", "error", err)
			return "", &FatalAPIError{Provider: name, Err: err}
		}

		metrics.CaptureCompletionAttempt(name, "transient")
		transient.Attempts = attempt
		lastErr = transient
		if attempt == attempts {
			break
		}

		delay := c.policy.Delay(attempt)
		log.Warn("transient completion failure, retrying", "attempt", attempt, "status", transient.StatusCode, "delay", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	log.Error("completion retries exhausted", "attempts", attempts, "error", lastErr)
	return "", lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
