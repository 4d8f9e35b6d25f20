package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/lamim/talentradar/internal/config"
	"github.com/lamim/talentradar/internal/util"
)

// LanguageModel answers a single prompt
type LanguageModel interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// LanguageModelFunc adapts a function to LanguageModel
type LanguageModelFunc func(ctx context.Context, prompt string) (string, error)

func (f LanguageModelFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ChatModel binds a client to one configured model
type ChatModel struct {
	client       *Client
	config       config.ModelConfig
	apiKey       string
	systemPrompt string
}

// NewChatModel creates a ChatModel. systemPrompt may be empty.
func NewChatModel(client *Client, cfg config.ModelConfig, apiKey, systemPrompt string) *ChatModel {
	return &ChatModel{
		client:       client,
		config:       cfg,
		apiKey:       apiKey,
		systemPrompt: systemPrompt,
	}
}

// Name returns the configured model name
func (m *ChatModel) Name() string {
	return m.config.ModelName
}

// Invoke sends prompt as a user message and returns the answer with any
// reasoning blocks removed
func (m *ChatModel) Invoke(ctx context.Context, prompt string) (string, error) {
	messages := make([]Message, 0, 2)
	if m.systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: m.systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	resp, err := m.client.ChatCompletion(ctx, m.config, m.apiKey, messages)
	if err != nil {
		return "", err
	}

	choice := resp.Choices[0]
	m.client.logger.Debug("Model answered",
		"model", m.config.ModelName,
		"finish_reason", choice.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"reasoning_chars", len(choice.Message.ReasoningContent))

	content := util.StripThinkTags(choice.Message.Content)
	if strings.TrimSpace(content) == "" {
		// Reasoning models cut off by max_tokens leave only reasoning behind
		return "", fmt.Errorf("model %s returned an empty answer (finish_reason=%s)",
			m.config.ModelName, choice.FinishReason)
	}
	return content, nil
}
