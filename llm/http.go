package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joeycumines/go-catrate"
)

// HTTPProvider is a generic JSON-over-HTTP transport: it POSTs a
// {prompt, system_prompt, temperature, max_tokens} body and expects a
// {text} body back, paced by a sliding-window rate limiter so a runaway
// evolution loop can't flood a real endpoint.
type HTTPProvider struct {
	name     string
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *catrate.Limiter
	category string
}

// HTTPProviderConfig configures an HTTPProvider's endpoint, credentials
// and call-rate ceiling.
type HTTPProviderConfig struct {
	Name     string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Rates    map[time.Duration]int
}

// NewHTTPProvider builds an HTTPProvider. A nil/empty Rates map disables
// pacing (catrate.NewLimiter treats it as unlimited).
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		name:     cfg.Name,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		limiter:  catrate.NewLimiter(cfg.Rates),
		category: cfg.Name,
	}
}

func (p *HTTPProvider) Name() string { return p.name }

type httpRequestBody struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

type httpResponseBody struct {
	Text string `json:"text"`
}

// Generate blocks until the rate limiter admits the call (or ctx is
// cancelled), then issues one POST. Any failure below the HTTP
// transport layer is wrapped in a TransportError so callers can apply
// the retry-once-then-fallback policy uniformly.
func (p *HTTPProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if err := p.awaitSlot(ctx); err != nil {
		return Response{}, err
	}

	body, err := json.Marshal(httpRequestBody{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		return Response{}, &TransportError{Provider: p.name, Op: "marshal", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, &TransportError{Provider: p.name, Op: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Response{}, &TransportError{Provider: p.name, Op: "do request", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &TransportError{Provider: p.name, Op: "read body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, &TransportError{Provider: p.name, Op: "status", Err: fmt.Errorf("%d: %s", resp.StatusCode, raw)}
	}

	var out httpResponseBody
	if err := json.Unmarshal(raw, &out); err != nil {
		return Response{}, &TransportError{Provider: p.name, Op: "unmarshal", Err: err}
	}
	return Response{Text: out.Text}, nil
}

// awaitSlot polls the limiter until it admits the category or ctx ends.
func (p *HTTPProvider) awaitSlot(ctx context.Context) error {
	for {
		next, ok := p.limiter.Allow(p.category)
		if ok {
			return nil
		}
		wait := time.Until(next)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &TransportError{Provider: p.name, Op: "rate limit wait", Err: ctx.Err()}
		case <-timer.C:
		}
	}
}
