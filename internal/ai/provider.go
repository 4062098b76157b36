// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai talks to hosted LLM providers (OpenAI, Gemini, Claude,
// Mistral) and builds the study-assistant flows on top of them. A Registry
// holds the configured providers and routes calls to the active one.
package ai

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Provider is a single LLM backend.
type Provider interface {
	// Generate returns the model's reply to userPrompt under systemPrompt.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Name returns the provider identifier, e.g. "openai".
	Name() string
}

// ProviderConfig holds the credentials and settings for one provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Provider names accepted by NewRegistry and SetActive.
const (
	OpenAI  = "openai"
	Gemini  = "gemini"
	Claude  = "claude"
	Mistral = "mistral"
)

// Registry keeps the configured providers and the name of the active one.
// It is safe for concurrent use; the back-office can switch providers while
// requests are in flight.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	active    string
	moderator Moderator
}

// NewRegistry builds a provider for every config with an API key. Unknown
// names and empty keys are skipped. Prompt moderation is enabled when an
// OpenAI or Mistral key is present; with both, Mistral backs up OpenAI.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		active:    active,
	}

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		switch name {
		case OpenAI:
			r.providers[name] = newOpenAI(cfg)
		case Gemini:
			r.providers[name] = newGemini(cfg)
		case Claude:
			r.providers[name] = newClaude(cfg)
		case Mistral:
			r.providers[name] = newMistral(cfg)
		}
	}

	var mods []Moderator
	if cfg := configs[OpenAI]; cfg.APIKey != "" {
		mods = append(mods, newOpenAIModerator(cfg.APIKey, cfg.BaseURL))
	}
	if cfg := configs[Mistral]; cfg.APIKey != "" {
		mods = append(mods, newMistralModerator(cfg.APIKey, cfg.BaseURL))
	}
	switch len(mods) {
	case 0:
	case 1:
		r.moderator = mods[0]
	default:
		r.moderator = newFallbackModerator(mods[0], mods[1])
	}

	return r
}

// Generate runs the prompt on the active provider.
func (r *Registry) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	p, err := r.Active()
	if err != nil {
		return "", err
	}
	return p.Generate(ctx, systemPrompt, userPrompt)
}

// Active returns the currently active provider.
func (r *Registry) Active() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[r.active]
	if !ok {
		return nil, fmt.Errorf("ai: no provider configured for %q", r.active)
	}
	return p, nil
}

// SetActive switches the active provider. The provider must be configured.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("ai: provider %q is not available", name)
	}
	r.active = name
	return nil
}

// ActiveName returns the name of the active provider, configured or not.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Available returns the sorted names of the configured providers.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.providers))
}

// Register adds or replaces a provider.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// HasProvider reports whether name is configured.
func (r *Registry) HasProvider(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Enabled reports whether the active provider is configured.
func (r *Registry) Enabled() bool {
	return r.HasProvider(r.ActiveName())
}

// CheckPrompt screens text with the moderation endpoint. Without a
// moderator every prompt is considered safe.
func (r *Registry) CheckPrompt(ctx context.Context, text string) (*ModerationResult, error) {
	if r.moderator == nil {
		return &ModerationResult{Safe: true}, nil
	}
	return r.moderator.CheckSafety(ctx, text)
}
