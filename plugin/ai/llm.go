package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/plugin/ai/timeout"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMService is the LLM service interface.
type LLMService interface {
	// Chat performs synchronous chat.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatJSON performs synchronous chat asking the provider for a JSON object response.
	// Providers without structured output return free text that callers must extract JSON from.
	ChatJSON(ctx context.Context, messages []Message) (string, error)
}

type llmService struct {
	model       llms.Model
	maxTokens   int
	temperature float32
	jsonMode    bool
}

// NewLLMService creates a new LLMService.
func NewLLMService(ctx context.Context, cfg *LLMConfig) (LLMService, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case "deepseek":
		// DeepSeek is compatible with OpenAI API
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithModel(cfg.Model),
		)

	case "openai":
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)

	case "ollama":
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.BaseURL),
		)

	case "gemini":
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, err
	}

	return newLLMServiceWithModel(model, cfg), nil
}

func newLLMServiceWithModel(model llms.Model, cfg *LLMConfig) *llmService {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &llmService{
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		jsonMode:    cfg.JSONMode,
	}
}

func (s *llmService) Chat(ctx context.Context, messages []Message) (string, error) {
	return s.generate(ctx, messages, false)
}

func (s *llmService) ChatJSON(ctx context.Context, messages []Message) (string, error) {
	return s.generate(ctx, messages, s.jsonMode)
}

func (s *llmService) generate(ctx context.Context, messages []Message, jsonMode bool) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout.LLMTimeout)
	defer cancel()

	opts := []llms.CallOption{
		llms.WithMaxTokens(s.maxTokens),
		llms.WithTemperature(float64(s.temperature)),
	}
	if jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := s.model.GenerateContent(callCtx, convertMessages(messages), opts...)
	if err != nil {
		return "", apperrors.Upstream("LLM request failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", apperrors.Upstream("empty LLM response", nil)
	}

	return resp.Choices[0].Content, nil
}

func convertMessages(messages []Message) []llms.MessageContent {
	llmMessages := make([]llms.MessageContent, len(messages))
	for i, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case "system":
			role = llms.ChatMessageTypeSystem
		case "user":
			role = llms.ChatMessageTypeHuman
		case "assistant":
			role = llms.ChatMessageTypeAI
		}

		llmMessages[i] = llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		}
	}
	return llmMessages
}

// Helper for creating system prompts
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
