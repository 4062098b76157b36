// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
)

// ModerationResult is the outcome of a prompt safety check.
type ModerationResult struct {
	Safe       bool
	Categories []string // flagged categories, empty when safe
}

// Moderator screens user text before it reaches a provider.
type Moderator interface {
	CheckSafety(ctx context.Context, text string) (*ModerationResult, error)
}

// moderationAPI calls an OpenAI-style /moderations endpoint. OpenAI marks
// flagged results explicitly; Mistral only reports per-category booleans.
type moderationAPI struct {
	name    string
	model   string
	url     string
	apiKey  string
	client  *http.Client
	flagged func(moderationResult) bool
}

func newOpenAIModerator(apiKey, baseURL string) *moderationAPI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &moderationAPI{
		name:    "openai moderation",
		model:   "omni-moderation-latest",
		url:     baseURL + "/moderations",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: moderationTimeout},
		flagged: func(r moderationResult) bool { return r.Flagged },
	}
}

func newMistralModerator(apiKey, baseURL string) *moderationAPI {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1"
	}
	return &moderationAPI{
		name:   "mistral moderation",
		model:  "mistral-moderation-latest",
		url:    baseURL + "/moderations",
		apiKey: apiKey,
		client: &http.Client{Timeout: moderationTimeout},
		flagged: func(r moderationResult) bool {
			for _, hit := range r.Categories {
				if hit {
					return true
				}
			}
			return false
		},
	}
}

func (m *moderationAPI) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	var resp moderationResponse
	err := postJSON(ctx, m.client, m.name, m.url,
		map[string]string{"Authorization": "Bearer " + m.apiKey},
		moderationRequest{Model: m.model, Input: text}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 || !m.flagged(resp.Results[0]) {
		return &ModerationResult{Safe: true}, nil
	}

	var cats []string
	for cat, hit := range resp.Results[0].Categories {
		if hit {
			cats = append(cats, displayCategory(cat))
		}
	}
	slices.Sort(cats)
	return &ModerationResult{Categories: cats}, nil
}

// displayCategory turns "self_harm/intent" into "self harm (intent)".
func displayCategory(cat string) string {
	cat = strings.ReplaceAll(cat, "_", " ")
	if base, sub, ok := strings.Cut(cat, "/"); ok {
		return base + " (" + sub + ")"
	}
	return cat
}

// fallbackModerator asks primary first and switches to secondary when the
// primary rejects its credentials. Project-scoped OpenAI keys often cannot
// reach the moderation endpoint.
type fallbackModerator struct {
	primary   Moderator
	secondary Moderator
}

func newFallbackModerator(primary, secondary Moderator) *fallbackModerator {
	return &fallbackModerator{primary: primary, secondary: secondary}
}

func (f *fallbackModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	res, err := f.primary.CheckSafety(ctx, text)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		slog.Warn("primary moderation rejected credentials, using fallback", "status", apiErr.Status)
		return f.secondary.CheckSafety(ctx, text)
	}
	return res, err
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []moderationResult `json:"results"`
}

type moderationResult struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}
