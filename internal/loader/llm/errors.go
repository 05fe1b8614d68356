package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
)

// TransientAPIError covers rate limiting, server errors and network timeouts.
type TransientAPIError struct {
	Provider   string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *TransientAPIError) Error() string {
	msg := fmt.Sprintf("%s: transient completion failure", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransientAPIError) Unwrap() []error {
	return []error{jobModel.ErrTransientAPI, e.Err}
}

// FatalAPIError covers requests the provider will never accept as sent.
type FatalAPIError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *FatalAPIError) Error() string {
	msg := fmt.Sprintf("%s: completion rejected", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FatalAPIError) Unwrap() []error {
	return []error{jobModel.ErrFatalAPI, e.Err}
}

// ClassifyStatus maps an HTTP status from the provider onto the error taxonomy.
func ClassifyStatus(provider string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status >= 500:
		return &TransientAPIError{Provider: provider, StatusCode: status, Err: err}
	case status >= 400:
		return &FatalAPIError{Provider: provider, StatusCode: status, Err: err}
	default:
		return ClassifyTransport(provider, err)
	}
}

// ClassifyTransport handles failures that never produced an HTTP status.
// Cancellation by the caller is returned unchanged.
func ClassifyTransport(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return &TransientAPIError{Provider: provider, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientAPIError{Provider: provider, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &TransientAPIError{Provider: provider, Err: err}
	}
	return &FatalAPIError{Provider: provider, Err: err}
}
