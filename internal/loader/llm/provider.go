package llm

import "context"

// Provider performs a single completion call. Implementations classify failures
// as *TransientAPIError or *FatalAPIError and never retry on their own.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, model string) (string, error)
}
