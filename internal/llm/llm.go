// File path: internal/llm/llm.go
package llm

import (
	"errors"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/mbartelsen/beanshift/internal/common"
	"github.com/mbartelsen/beanshift/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// NewProvider selects the OpenAI provider when credentials are present and
// falls back to the offline local provider otherwise.
func NewProvider() Provider {
	logger := common.Logger()
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		logger.Warn("llm: OPENAI_API_KEY not set; falling back to local provider")
		return providers.NewLocalProvider()
	}
	client := openai.NewClient(openAIOptions(apiKey)...)
	logger.Info("llm: OpenAI provider selected")
	return providers.NewOpenAIProvider(&client)
}

// openAIOptions assembles client options from the environment. Both the
// request timeout and the endpoint are overridable so the provider can point
// at API-compatible gateways.
func openAIOptions(apiKey string) []option.RequestOption {
	logger := common.Logger()
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if raw := strings.TrimSpace(os.Getenv("OPENAI_HTTP_TIMEOUT")); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			logger.Warn("llm: invalid OPENAI_HTTP_TIMEOUT, using default", "value", raw, "error", err)
		} else {
			logger.Info("llm: configuring OpenAI client with custom HTTP timeout", "timeout", timeout)
			opts = append(opts, option.WithRequestTimeout(timeout))
		}
	}
	if endpoint := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); endpoint != "" {
		logger.Info("llm: configuring OpenAI client with custom endpoint", "endpoint", endpoint)
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	return opts
}

// NormalizeMessages lowercases roles and rejects empty requests.
func NormalizeMessages(messages []Message) ([]Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages provided")
	}
	for i := range messages {
		messages[i].Role = strings.ToLower(messages[i].Role)
	}
	return messages, nil
}
