// Package llm provides an abstraction layer for language model providers.
package llm

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when no LLM provider is configured or available.
var ErrNoProvider = errors.New("no LLM provider available")

// Message represents a single message in a conversation.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Provider defines the interface for language model backends.
type Provider interface {
	// Name returns the provider name for display/logging.
	Name() string

	// Available checks if this provider is ready to use.
	Available() bool

	// Stream sends a conversation and streams the reply. onToken is called
	// with each text fragment as it arrives; it may be nil. The accumulated
	// text is returned even when err is non-nil, so partial output from a
	// cancelled request is still usable.
	Stream(ctx context.Context, system string, messages []Message, onToken func(string)) (string, error)
}

// Client manages LLM providers and selects the best available one.
type Client struct {
	providers []Provider
	preferred Provider
}

// NewClient creates a new LLM client with the given providers.
// Providers are tried in order of preference.
func NewClient(providers ...Provider) *Client {
	return &Client{
		providers: providers,
	}
}

// SetPreferred sets a specific provider to use, bypassing auto-selection.
func (c *Client) SetPreferred(name string) bool {
	for _, p := range c.providers {
		if p.Name() == name && p.Available() {
			c.preferred = p
			return true
		}
	}
	return false
}

// Provider returns the currently active provider, or nil if none available.
func (c *Client) Provider() Provider {
	if c.preferred != nil && c.preferred.Available() {
		return c.preferred
	}

	// Find first available provider
	for _, p := range c.providers {
		if p.Available() {
			return p
		}
	}
	return nil
}

// Available returns true if any provider is available.
func (c *Client) Available() bool {
	return c.Provider() != nil
}

// Stream sends a conversation to the best available provider.
func (c *Client) Stream(ctx context.Context, system string, messages []Message, onToken func(string)) (string, error) {
	p := c.Provider()
	if p == nil {
		return "", ErrNoProvider
	}
	return p.Stream(ctx, system, messages, onToken)
}

// ListProviders returns info about all configured providers.
func (c *Client) ListProviders() []ProviderInfo {
	var infos []ProviderInfo
	for _, p := range c.providers {
		infos = append(infos, ProviderInfo{
			Name:      p.Name(),
			Available: p.Available(),
		})
	}
	return infos
}

// ProviderInfo describes a provider's status.
type ProviderInfo struct {
	Name      string
	Available bool
}
