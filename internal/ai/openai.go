package ai

import (
	"context"
	"errors"
	"net/http"
)

// chatProvider speaks the OpenAI chat completions format. Mistral exposes
// the same API under its own base URL.
type chatProvider struct {
	name   string
	config ProviderConfig
	client *http.Client
}

func newOpenAI(cfg ProviderConfig) *chatProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &chatProvider{name: OpenAI, config: cfg, client: &http.Client{Timeout: generateTimeout}}
}

func newMistral(cfg ProviderConfig) *chatProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	return &chatProvider{name: Mistral, config: cfg, client: &http.Client{Timeout: generateTimeout}}
}

func (p *chatProvider) Name() string { return p.name }

// Generate posts to {BaseURL}/chat/completions and returns the first choice.
func (p *chatProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := chatRequest{
		Model: p.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	var resp chatResponse
	err := postJSON(ctx, p.client, p.name, p.config.BaseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + p.config.APIKey}, req, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(p.name + ": no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
