// Package llmclient implements the non-streaming LLM completion contract
// (§6): a request of (model, max_tokens, messages) produces a response
// whose first content-array element's text is the payload, with token
// usage accumulated when present. It replaces the teacher's
// `pkg/batch` `syscall/js` fetch transport with `net/http`, keeping the
// same Provider/Config/IsConfigured/Complete shape for a non-WASM
// process — the `//go:build js,wasm` tags are dropped.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider names an LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Config holds the credentials and model selection for both supported
// providers; a Service fails over from the primary to the secondary
// provider on an overload signal (§4.6).
type Config struct {
	Primary   Provider
	Secondary Provider

	AnthropicAPIKey string
	AnthropicModel  string

	OpenAIAPIKey string
	OpenAIModel  string

	MaxTokens int
	Timeout   time.Duration
}

// Usage reports token counts the caller should accumulate into settings
// (internal/kgconfig.Store.AccumulateStats).
type Usage struct {
	Provider     Provider
	InputTokens  int64
	OutputTokens int64
}

// Service performs non-streaming completions against the configured
// provider(s), over a shared *http.Client.
type Service struct {
	cfg    Config
	client *http.Client

	// onUsage, when set, receives token usage after each successful call.
	onUsage func(Usage)
}

// NewService builds a Service. A zero Timeout defaults to 60s.
func NewService(cfg Config) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// OnUsage registers a callback invoked with token usage after each
// completion. Passing nil disables reporting.
func (s *Service) OnUsage(fn func(Usage)) {
	s.onUsage = fn
}

// IsConfigured reports whether at least one provider has credentials.
func (s *Service) IsConfigured() bool {
	return s.hasCreds(s.cfg.Primary) || s.hasCreds(s.cfg.Secondary)
}

func (s *Service) hasCreds(p Provider) bool {
	switch p {
	case ProviderAnthropic:
		return s.cfg.AnthropicAPIKey != ""
	case ProviderOpenAI:
		return s.cfg.OpenAIAPIKey != ""
	default:
		return false
	}
}

// overloadStatus signals from either provider that warrant failing over
// to the secondary provider rather than surfacing an error immediately.
var overloadStatus = map[int]bool{
	429: true,
	529: true, // Anthropic "overloaded_error"
	503: true,
}

// Complete sends userPrompt/systemPrompt to the primary provider, failing
// over to the secondary provider on an overload response. Returns the
// extracted text payload.
func (s *Service) Complete(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	if !s.IsConfigured() {
		return "", errors.New("llmclient: no provider configured")
	}

	order := []Provider{s.cfg.Primary, s.cfg.Secondary}
	var lastErr error
	for _, p := range order {
		if p == "" || !s.hasCreds(p) {
			continue
		}
		text, err := s.complete(ctx, p, userPrompt, systemPrompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		var oe *overloadError
		if !errors.As(err, &oe) {
			return "", err
		}
		// overloaded: try next provider
	}
	if lastErr == nil {
		return "", errors.New("llmclient: no provider configured")
	}
	return "", lastErr
}

type overloadError struct {
	provider Provider
	status   int
}

func (e *overloadError) Error() string {
	return fmt.Sprintf("llmclient: %s overloaded (status %d)", e.provider, e.status)
}

func (s *Service) complete(ctx context.Context, p Provider, userPrompt, systemPrompt string) (string, error) {
	switch p {
	case ProviderAnthropic:
		return s.callAnthropic(ctx, userPrompt, systemPrompt)
	case ProviderOpenAI:
		return s.callOpenAI(ctx, userPrompt, systemPrompt)
	default:
		return "", fmt.Errorf("llmclient: unknown provider %q", p)
	}
}

func (s *Service) doJSON(ctx context.Context, url string, headers map[string]string, body any, out any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llmclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("llmclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp, fmt.Errorf("llmclient: decode response: %w", err)
	}
	return resp, nil
}
