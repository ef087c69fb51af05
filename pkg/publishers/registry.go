package publishers

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with the given builders keyed by type.
func NewRegistry(builders map[string]Builder) *Registry {
	r := &Registry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// DefaultRegistry knows the http and queue publisher types.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:  newHTTPPublisher,
		TypeQueue: newQueuePublisher,
	})
}

// Register associates a builder with a publisher type.
func (r *Registry) Register(typ string, builder Builder) {
	if typ = strings.ToLower(strings.TrimSpace(typ)); typ == "" || builder == nil {
		return
	}
	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// Build instantiates a publisher for every config, failing on the first error.
// Publishers built before the failure are closed.
func (r *Registry) Build(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	log = ensureLogger(log)

	pubs := make([]Publisher, 0, len(cfgs))
	fail := func(err error) ([]Publisher, error) {
		if cerr := CloseAll(pubs); cerr != nil {
			log.WarnObj("close partially built publishers failed", "publisher_close_error", map[string]any{"error": cerr.Error()})
		}
		return nil, err
	}
	for _, cfg := range cfgs {
		r.mu.RLock()
		builder := r.builders[strings.ToLower(cfg.Type)]
		r.mu.RUnlock()

		if builder == nil {
			return fail(fmt.Errorf("no publisher registered for type %q", cfg.Type))
		}
		pub, err := builder(ctx, cfg, log)
		if err != nil {
			return fail(fmt.Errorf("build publisher %q: %w", cfg.ID, err))
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
