package llmclient

import (
	"context"
	"fmt"
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Service) callAnthropic(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	maxTokens := s.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	req := anthropicRequest{
		Model:     s.cfg.AnthropicModel,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	var resp anthropicResponse
	httpResp, err := s.doJSON(ctx, "https://api.anthropic.com/v1/messages", map[string]string{
		"x-api-key":         s.cfg.AnthropicAPIKey,
		"anthropic-version": "2023-06-01",
	}, req, &resp)
	if err != nil {
		return "", fmt.Errorf("llmclient: anthropic: %w", err)
	}

	if httpResp != nil && overloadStatus[httpResp.StatusCode] {
		return "", &overloadError{provider: ProviderAnthropic, status: httpResp.StatusCode}
	}
	if resp.Error != nil {
		if resp.Error.Type == "overloaded_error" {
			return "", &overloadError{provider: ProviderAnthropic, status: 529}
		}
		return "", fmt.Errorf("llmclient: anthropic error: %s", resp.Error.Message)
	}

	if resp.Usage != nil && s.onUsage != nil {
		s.onUsage(Usage{
			Provider:     ProviderAnthropic,
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		})
	}

	for _, c := range resp.Content {
		if c.Text != "" {
			return c.Text, nil
		}
	}
	if len(resp.Content) > 0 {
		return resp.Content[0].Text, nil
	}
	return "", fmt.Errorf("llmclient: anthropic: empty content array")
}
