package llm

import (
	"context"
	"fmt"
	"math/rand"
)

// LocalProvider answers generation calls deterministically from a fixed
// rng, without touching a network. It exists so the evolution loop
// compiles and runs end to end in CI without any external provider
// configured, per the local-fallback requirement.
type LocalProvider struct {
	rng       *rand.Rand
	templates []string
}

// NewLocalProvider builds a local provider seeded with rng and the
// given Redcode fragment templates, one of which is picked at random per
// call.
func NewLocalProvider(rng *rand.Rand, templates []string) *LocalProvider {
	return &LocalProvider{rng: rng, templates: templates}
}

func (p *LocalProvider) Name() string { return "local" }

// Generate ignores the prompt and returns one of the configured
// templates, picked pseudo-randomly. Callers needing prompt-sensitive
// behavior should not use LocalProvider; it models "no real LLM
// available" rather than a capable stand-in.
func (p *LocalProvider) Generate(_ context.Context, _ Request) (Response, error) {
	if len(p.templates) == 0 {
		return Response{}, &TransportError{Provider: p.Name(), Op: "generate", Err: fmt.Errorf("no templates configured")}
	}
	idx := p.rng.Intn(len(p.templates))
	return Response{Text: p.templates[idx]}, nil
}
