package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/llm"
)

const generateBody = `{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "BEGIN_LOADER\nA | B | C\nEND_LOADER"}]},
    "finishReason": "STOP",
    "index": 0
  }],
  "usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
}`

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newProvider(t *testing.T, srv *httptest.Server) llm.Provider {
	t.Helper()
	s := config.Defaults().LLM
	s.Provider = config.ProviderGemini
	s.APIKey = "gm-test-secret"
	s.BaseURL = srv.URL + "/"
	s.RequestTimeout = 5 * time.Second

	p, err := NewGeminiClient(context.Background(), s, srv.Client())
	if err != nil {
		t.Fatalf("NewGeminiClient failed: %v", err)
	}
	return p
}

func writeError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"nope","status":"%s"}}`, code, http.StatusText(code))
}

func TestComplete_SendsPromptAndReturnsText(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "gm-test-secret" {
			t.Errorf("api key header = %q", got)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw, _ := json.Marshal(body["contents"])
		if !strings.Contains(string(raw), "the prompt") {
			t.Errorf("prompt not sent: %s", raw)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(generateBody))
	})

	text, err := newProvider(t, srv).Complete(context.Background(), "the prompt", "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !strings.Contains(text, "A | B | C") {
		t.Errorf("text = %q", text)
	}
}

func TestComplete_ClassifiesAPIError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusServiceUnavailable, jobModel.ErrTransientAPI},
		{http.StatusTooManyRequests, jobModel.ErrTransientAPI},
		{http.StatusInternalServerError, jobModel.ErrTransientAPI},
		{http.StatusForbidden, jobModel.ErrFatalAPI},
		{http.StatusBadRequest, jobModel.ErrFatalAPI},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tt.status)
			})

			_, err := newProvider(t, srv).Complete(context.Background(), "p", "gemini-2.5-flash")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if *calls != 1 {
				t.Errorf("provider retried on its own: %d calls", *calls)
			}
		})
	}
}

func TestComplete_NoCandidatesIsTransient(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	})

	_, err := newProvider(t, srv).Complete(context.Background(), "p", "gemini-2.5-flash")
	if !errors.Is(err, jobModel.ErrTransientAPI) {
		t.Errorf("err = %v, want transient", err)
	}
}

func TestClassify_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	p := newProvider(t, srv)
	srv.Close()

	_, err := p.Complete(context.Background(), "p", "gemini-2.5-flash")
	if !errors.Is(err, jobModel.ErrTransientAPI) {
		t.Errorf("err = %v, want transient", err)
	}
}
