// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"errors"
	"strings"
)

// Message is one turn of a chat exchange with a provider.
type Message struct {
	Role    string
	Content string
}

// Provider answers migration questions over a chat interface.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// LocalProvider is the offline fallback used when no API credentials are
// configured. It echoes the last user turn so the advice endpoints stay
// exercisable in air-gapped environments and in tests.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages provided")
	}
	last := messages[len(messages)-1].Content
	for i := len(messages) - 1; i >= 0; i-- {
		if !strings.EqualFold(messages[i].Role, "system") {
			last = messages[i].Content
			break
		}
	}
	return "[local-stub] " + strings.TrimSpace(last), nil
}

func (l *LocalProvider) Name() string {
	return "local"
}
