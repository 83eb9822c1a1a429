package llmclient

import (
	"context"
	"fmt"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []openAIMessage `json:"messages"`
	Stream    bool            `json:"stream"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (s *Service) callOpenAI(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	maxTokens := s.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	messages := make([]openAIMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: userPrompt})

	req := openAIRequest{
		Model:     s.cfg.OpenAIModel,
		MaxTokens: maxTokens,
		Messages:  messages,
		Stream:    false,
	}

	var resp openAIResponse
	httpResp, err := s.doJSON(ctx, "https://api.openai.com/v1/chat/completions", map[string]string{
		"Authorization": "Bearer " + s.cfg.OpenAIAPIKey,
	}, req, &resp)
	if err != nil {
		return "", fmt.Errorf("llmclient: openai: %w", err)
	}

	if httpResp != nil && overloadStatus[httpResp.StatusCode] {
		return "", &overloadError{provider: ProviderOpenAI, status: httpResp.StatusCode}
	}
	if resp.Error != nil {
		if resp.Error.Code == "rate_limit_exceeded" || resp.Error.Type == "server_error" {
			return "", &overloadError{provider: ProviderOpenAI, status: 429}
		}
		return "", fmt.Errorf("llmclient: openai error: %s", resp.Error.Message)
	}

	if resp.Usage != nil && s.onUsage != nil {
		s.onUsage(Usage{
			Provider:     ProviderOpenAI,
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		})
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llmclient: openai: empty choices array")
	}
	return resp.Choices[0].Message.Content, nil
}
