package server

import (
	"context"
	"fmt"
)

// FuncPinger adapts a probe function to the Pinger interface. The command
// layer uses it for the vector store (VectorStore.Ping or Qdrant HealthCheck)
// and the model backend (provider.Models.Ping), neither of which costs tokens.
type FuncPinger struct {
	// name identifies the dependency in readiness responses (e.g. "qdrant").
	name string
	// probe returns nil when the dependency is reachable.
	probe func(ctx context.Context) error
}

// NewPinger constructs a FuncPinger with the given label and probe.
func NewPinger(name string, probe func(ctx context.Context) error) *FuncPinger {
	return &FuncPinger{name: name, probe: probe}
}

// Name returns the dependency label used in readiness responses.
func (p *FuncPinger) Name() string { return p.name }

// Ping runs the probe and wraps its failure.
func (p *FuncPinger) Ping(ctx context.Context) error {
	if err := p.probe(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
