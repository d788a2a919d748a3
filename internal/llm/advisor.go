// File path: internal/llm/advisor.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mbartelsen/beanshift/internal/common"
	"github.com/mbartelsen/beanshift/internal/common/telemetry"
)

// BeanContext carries the converged facts about one bean that the advisor
// folds into its prompt.
type BeanContext struct {
	Class        string   `json:"class"`
	Kind         string   `json:"kind"`
	SpringTarget string   `json:"spring_target"`
	Complexity   float64  `json:"complexity"`
	Dependencies []string `json:"dependencies,omitempty"`
	Resources    []string `json:"resources,omitempty"`
	Remote       bool     `json:"remote"`
}

// Advisor turns converged bean metadata into migration guidance via the
// configured chat provider.
type Advisor struct {
	provider Provider
}

func NewAdvisor(provider Provider) *Advisor {
	return &Advisor{provider: provider}
}

const advisorSystemPrompt = "You are a migration assistant helping a team move EJB 2.x " +
	"components to Spring Boot. Answer with concrete, actionable steps. Mention the " +
	"target Spring stereotype, transaction handling, and how to replace remote " +
	"interfaces when they are present. Keep the answer under 300 words."

// Advise requests guidance for a single bean.
func (a *Advisor) Advise(ctx context.Context, bean BeanContext) (string, error) {
	if a == nil || a.provider == nil {
		return "", errors.New("advisor not configured")
	}
	if strings.TrimSpace(bean.Class) == "" {
		return "", errors.New("bean class required")
	}
	logger := common.Logger()
	start := time.Now()
	messages := []Message{
		{Role: "system", Content: advisorSystemPrompt},
		{Role: "user", Content: bean.prompt()},
	}
	answer, err := a.provider.Chat(ctx, messages)
	if err != nil {
		logger.Error("llm: advice request failed", "class", bean.Class, "error", err)
		return "", fmt.Errorf("advise %s: %w", bean.Class, err)
	}
	telemetry.RecordAdvice(time.Since(start))
	logger.Debug("llm: advice produced", "class", bean.Class, "provider", a.provider.Name())
	return answer, nil
}

func (b BeanContext) prompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bean class: %s\n", b.Class)
	if b.Kind != "" {
		fmt.Fprintf(&sb, "EJB kind: %s\n", b.Kind)
	}
	if b.SpringTarget != "" {
		fmt.Fprintf(&sb, "Proposed Spring target: %s\n", b.SpringTarget)
	}
	fmt.Fprintf(&sb, "Complexity score: %.1f\n", b.Complexity)
	if b.Remote {
		sb.WriteString("The bean exposes remote home/component interfaces.\n")
	}
	if len(b.Dependencies) > 0 {
		fmt.Fprintf(&sb, "Depends on: %s\n", strings.Join(b.Dependencies, ", "))
	}
	if len(b.Resources) > 0 {
		fmt.Fprintf(&sb, "Resource references: %s\n", strings.Join(b.Resources, ", "))
	}
	sb.WriteString("How should this bean be migrated to Spring Boot?")
	return sb.String()
}
