package openaiLLM

import (
	"context"
	"errors"
	"net/http"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/llm"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	client      openai.Client
	temperature float64
	logger      *logger_i.Logger
}

// NewOpenAIClient builds a chat-completions provider. SDK retries are disabled;
// llm.Client owns the retry policy.
func NewOpenAIClient(settings config.LLMSettings, httpClient *http.Client) llm.Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithMaxRetries(0),
	}
	if settings.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(settings.RequestTimeout))
	}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	logger := logger_i.NewLogger("llm_openai")
	logger.Info("OpenAI client created", "llm", settings)
	return &llmClient{
		client:      openai.NewClient(opts...),
		temperature: settings.Temperature,
		logger:      logger,
	}
}

func (c *llmClient) Name() string {
	return config.ProviderOpenAI
}

func (c *llmClient) Complete(ctx context.Context, prompt string, model string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(config.ModelContext),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &llm.TransientAPIError{Provider: c.Name(), Err: errors.New("response contained no choices")}
	}
	c.logger.Debug("completion received", "model", resp.Model, "finish_reason", resp.Choices[0].FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llm.ClassifyStatus(config.ProviderOpenAI, apiErr.StatusCode, err)
	}
	return llm.ClassifyTransport(config.ProviderOpenAI, err)
}
