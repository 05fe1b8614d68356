package llm

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
)

type MockProvider struct {
	Calls      int32
	OnComplete func(ctx context.Context, call int32, prompt string, model string) (string, error)
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(ctx context.Context, prompt string, model string) (string, error) {
	call := atomic.AddInt32(&m.Calls, 1)
	if m.OnComplete != nil {
		return m.OnComplete(ctx, call, prompt, model)
	}
	return "ok", nil
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func status(code int) error {
	return ClassifyStatus("mock", code, errors.New(http.StatusText(code)))
}

func TestComplete_Scenarios(t *testing.T) {
	tests := []struct {
		name          string
		retries       int
		onComplete    func(ctx context.Context, call int32, prompt string, model string) (string, error)
		expectedText  string
		expectedCalls int32
		expectedErr   error
	}{
		{
			name:    "three 503 then success",
			retries: 3,
			onComplete: func(ctx context.Context, call int32, p, m string) (string, error) {
				if call <= 3 {
					return "", status(http.StatusServiceUnavailable)
				}
				return "BEGIN_LOADER", nil
			},
			expectedText:  "BEGIN_LOADER",
			expectedCalls: 4,
		},
		{
			name:    "rate limited until exhausted",
			retries: 2,
			onComplete: func(ctx context.Context, call int32, p, m string) (string, error) {
				return "", status(http.StatusTooManyRequests)
			},
			expectedCalls: 3,
			expectedErr:   jobModel.ErrTransientAPI,
		},
		{
			name:    "auth failure is not retried",
			retries: 3,
			onComplete: func(ctx context.Context, call int32, p, m string) (string, error) {
				return "", status(http.StatusUnauthorized)
			},
			expectedCalls: 1,
			expectedErr:   jobModel.ErrFatalAPI,
		},
		{
			name:    "bad request after a transient failure",
			retries: 3,
			onComplete: func(ctx context.Context, call int32, p, m string) (string, error) {
				if call == 1 {
					return "", status(http.StatusBadGateway)
				}
				return "", status(http.StatusBadRequest)
			},
			expectedCalls: 2,
			expectedErr:   jobModel.ErrFatalAPI,
		},
		{
			name:    "unclassified error is fatal",
			retries: 3,
			onComplete: func(ctx context.Context, call int32, p, m string) (string, error) {
				return "", errors.New("weird")
			},
			expectedCalls: 1,
			expectedErr:   jobModel.ErrFatalAPI,
		},
		{
			name:    "no retries configured",
			retries: 0,
			onComplete: func(ctx context.Context, call int32, p, m string) (string, error) {
				return "", status(http.StatusInternalServerError)
			},
			expectedCalls: 1,
			expectedErr:   jobModel.ErrTransientAPI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &MockProvider{OnComplete: tt.onComplete}
			client := NewClient(provider, "default-model", fastPolicy(tt.retries))

			text, err := client.Complete(context.Background(), "prompt", "")

			if calls := atomic.LoadInt32(&provider.Calls); calls != tt.expectedCalls {
				t.Errorf("calls = %d, want %d", calls, tt.expectedCalls)
			}
			if tt.expectedErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if text != tt.expectedText {
					t.Errorf("text = %q, want %q", text, tt.expectedText)
				}
				return
			}
			if !errors.Is(err, tt.expectedErr) {
				t.Errorf("err = %v, want %v", err, tt.expectedErr)
			}
		})
	}
}

func TestComplete_ExhaustedReportsAttempts(t *testing.T) {
	provider := &MockProvider{OnComplete: func(ctx context.Context, call int32, p, m string) (string, error) {
		return "", status(http.StatusServiceUnavailable)
	}}
	client := NewClient(provider, "m", fastPolicy(3))

	_, err := client.Complete(context.Background(), "p", "m")

	var transient *TransientAPIError
	if !errors.As(err, &transient) {
		t.Fatalf("expected *TransientAPIError, got %T", err)
	}
	if transient.Attempts != 4 || transient.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("attempts/status = %d/%d", transient.Attempts, transient.StatusCode)
	}
}

func TestComplete_UsesDefaultModel(t *testing.T) {
	var seen string
	provider := &MockProvider{OnComplete: func(ctx context.Context, call int32, p, m string) (string, error) {
		seen = m
		return "x", nil
	}}
	client := NewClient(provider, "gpt-4.1-mini", fastPolicy(0))

	_, _ = client.Complete(context.Background(), "p", "")
	if seen != "gpt-4.1-mini" {
		t.Errorf("model = %q", seen)
	}
	_, _ = client.Complete(context.Background(), "p", "other")
	if seen != "other" {
		t.Errorf("explicit model ignored: %q", seen)
	}
}

func TestComplete_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &MockProvider{OnComplete: func(c context.Context, call int32, p, m string) (string, error) {
		return "", status(http.StatusServiceUnavailable)
	}}
	client := NewClient(provider, "m", RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour})
	client.sleep = func(c context.Context, d time.Duration) error {
		cancel()
		return sleepContext(c, d)
	}

	_, err := client.Complete(ctx, "p", "m")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if provider.Calls != 1 {
		t.Errorf("calls = %d, want 1", provider.Calls)
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, jobModel.ErrTransientAPI},
		{http.StatusRequestTimeout, jobModel.ErrTransientAPI},
		{http.StatusInternalServerError, jobModel.ErrTransientAPI},
		{http.StatusServiceUnavailable, jobModel.ErrTransientAPI},
		{http.StatusBadRequest, jobModel.ErrFatalAPI},
		{http.StatusUnauthorized, jobModel.ErrFatalAPI},
		{http.StatusNotFound, jobModel.ErrFatalAPI},
	}
	for _, tt := range tests {
		if err := ClassifyStatus("p", tt.status, errors.New("x")); !errors.Is(err, tt.want) {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", tt.status, err, tt.want)
		}
	}

	if err := ClassifyTransport("p", context.DeadlineExceeded); !errors.Is(err, jobModel.ErrTransientAPI) {
		t.Errorf("deadline should be transient, got %v", err)
	}
	if err := ClassifyTransport("p", context.Canceled); !errors.Is(err, context.Canceled) || errors.Is(err, jobModel.ErrTransientAPI) {
		t.Errorf("cancellation should pass through, got %v", err)
	}
}
