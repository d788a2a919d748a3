// File path: internal/data/orchestrator/options.go
package orchestrator

import (
	graphmem "github.com/mbartelsen/beanshift/internal/graph/memory"
	"github.com/mbartelsen/beanshift/internal/llm"
)

type Option func(*options)

type options struct {
	provider llm.Provider
	graph    *graphmem.Service
}

// WithProvider injects a chat provider, bypassing environment detection.
// Primarily used in tests.
func WithProvider(provider llm.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithGraphService injects a pre-built dependency graph service.
func WithGraphService(svc *graphmem.Service) Option {
	return func(o *options) {
		o.graph = svc
	}
}
