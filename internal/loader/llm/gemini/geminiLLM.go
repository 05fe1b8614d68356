package gemini

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/llm"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client      *genai.Client
	timeout     time.Duration
	temperature float32
	logger      *logger_i.Logger
}

func NewGeminiClient(ctx context.Context, settings config.LLMSettings, httpClient *http.Client) (llm.Provider, error) {
	logger := logger_i.NewLogger("llm_gemini")

	clientConfig := &genai.ClientConfig{
		APIKey:     settings.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if settings.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = settings.BaseURL
	}
	c, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		return nil, err
	}
	logger.Info("Gemini client created", "llm", settings)

	return &llmClient{
		client:      c,
		timeout:     settings.RequestTimeout,
		temperature: float32(settings.Temperature),
		logger:      logger,
	}, nil
}

func (c *llmClient) Name() string {
	return config.ProviderGemini
}

func (c *llmClient) Complete(ctx context.Context, prompt string, model string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: config.ModelContext}},
		},
		Temperature: genai.Ptr(c.temperature),
	}

	result, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), contentConfig)
	if err != nil {
		return "", classify(err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", &llm.TransientAPIError{Provider: c.Name(), Err: errors.New("response contained no candidates")}
	}
	return result.Text(), nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.ClassifyStatus(config.ProviderGemini, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return llm.ClassifyStatus(config.ProviderGemini, apiErrPtr.Code, err)
	}
	return llm.ClassifyTransport(config.ProviderGemini, err)
}
