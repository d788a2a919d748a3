// File path: internal/data/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	graphmem "github.com/mbartelsen/beanshift/internal/graph/memory"
	"github.com/mbartelsen/beanshift/internal/llm"
	"github.com/mbartelsen/beanshift/internal/memory"
	"github.com/mbartelsen/beanshift/internal/sqlite"
)

type closer interface {
	Close() error
}

// Orchestrator wires together the persistent stores that back the server and
// exposes convenience accessors for the API layer.
type Orchestrator struct {
	cfg Config

	memoryStore *memory.Store
	catalog     *sqlite.Store
	graph       *graphmem.Service
	provider    llm.Provider

	closers []closer
}

// New opens every backing store and wires them together. Option overrides are
// mainly for tests that want to inject a scripted provider or prebuilt graph.
func New(ctx context.Context, cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg = applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	memStore, err := memory.NewStore(cfg.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("init memory store: %w", err)
	}
	catalog, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}

	graphSvc := settings.graph
	if graphSvc == nil {
		graphSvc = graphmem.NewService(graphmem.WithCacheTTL(cfg.GraphCacheTTL))
	}
	provider := settings.provider
	if provider == nil {
		provider = llm.NewProvider()
	}

	orch := &Orchestrator{
		cfg:         cfg,
		memoryStore: memStore,
		catalog:     catalog,
		graph:       graphSvc,
		provider:    provider,
	}
	orch.closers = append(orch.closers, catalog)
	return orch, nil
}

// Memory exposes the snapshot store.
func (o *Orchestrator) Memory() *memory.Store {
	if o == nil {
		return nil
	}
	return o.memoryStore
}

// Catalog exposes the SQLite catalog.
func (o *Orchestrator) Catalog() *sqlite.Store {
	if o == nil {
		return nil
	}
	return o.catalog
}

// Graph exposes the bean dependency graph service.
func (o *Orchestrator) Graph() *graphmem.Service {
	if o == nil {
		return nil
	}
	return o.graph
}

// Provider exposes the configured chat provider.
func (o *Orchestrator) Provider() llm.Provider {
	if o == nil {
		return nil
	}
	return o.provider
}

// Close shuts the stores down in reverse construction order.
func (o *Orchestrator) Close() error {
	if o == nil {
		return nil
	}
	var err error
	for i := len(o.closers) - 1; i >= 0; i-- {
		closer := o.closers[i]
		if closer == nil {
			continue
		}
		if cerr := closer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}
