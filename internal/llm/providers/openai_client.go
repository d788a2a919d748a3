// File path: internal/llm/providers/openai_client.go
package providers

import (
	"context"
	"errors"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v2"

	"github.com/mbartelsen/beanshift/internal/common"
)

const defaultChatModel = "gpt-4o"

// OpenAIProvider answers advice requests through the OpenAI chat API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(client *openai.Client) *OpenAIProvider {
	model := strings.TrimSpace(os.Getenv("OPENAI_CHAT_MODEL"))
	if model == "" {
		model = defaultChatModel
	}
	common.Logger().Info("llm: OpenAI provider configured", "chat_model", model)
	return &OpenAIProvider{client: client, model: model}
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if o.client == nil {
		return "", errors.New("nil openai client")
	}
	logger := common.Logger()
	logger.Debug("llm: sending chat completion request", "model", o.model, "messages", len(messages))
	params := openai.ChatCompletionNewParams{Model: openai.ChatModel(o.model)}
	for _, msg := range messages {
		params.Messages = append(params.Messages, toChatParam(msg))
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("llm: chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	logger.Debug("llm: chat completion succeeded")
	return resp.Choices[0].Message.Content, nil
}

func toChatParam(msg Message) openai.ChatCompletionMessageParamUnion {
	switch strings.ToLower(msg.Role) {
	case "system":
		return openai.SystemMessage(msg.Content)
	case "assistant":
		return openai.AssistantMessage(msg.Content)
	default:
		return openai.UserMessage(msg.Content)
	}
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}
