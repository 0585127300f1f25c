// ABOUTME: Client entry point for the LLM SDK with provider routing and middleware.
// ABOUTME: Provides NewClient with functional options and FromEnv construction from API key env vars.

package llm

import (
	"context"
	"fmt"
	"os"
)

// Middleware wraps an LLM call, enabling request/response transformation,
// logging, retry, and other cross-cutting concerns. Middleware executes in
// registration order for requests and reverse order for responses.
type Middleware func(ctx context.Context, req Request, next NextFunc) (*Response, error)

// NextFunc is the function signature passed to middleware to continue the chain.
type NextFunc func(ctx context.Context, req Request) (*Response, error)

// Client routes completion requests to registered provider adapters and
// applies the middleware chain.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
	middleware      []Middleware
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithProvider registers a ProviderAdapter under the given name. The first
// provider registered becomes the default if none is set.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) {
		c.providers[name] = adapter
		if c.defaultProvider == "" {
			c.defaultProvider = name
		}
	}
}

// WithDefaultProvider sets the provider used when a Request does not name one.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// WithMiddleware appends middleware to the client's chain.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NewClient creates a Client with the given options applied.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		providers: make(map[string]ProviderAdapter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromEnv creates a Client by detecting API keys in the environment. It
// checks GEMINI_API_KEY and OPENAI_API_KEY; the first detected provider
// becomes the default. Returns a ConfigurationError if no keys are found.
func FromEnv() (*Client, error) {
	var opts []ClientOption

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		opts = append(opts, WithProvider("gemini", NewGeminiAdapter(key)))
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		opts = append(opts, WithProvider("openai", NewOpenAIAdapter(key, "")))
	}

	if len(opts) == 0 {
		return nil, &ConfigurationError{
			SDKError: SDKError{
				Message: "no API keys found in environment (checked GEMINI_API_KEY, OPENAI_API_KEY)",
			},
		}
	}

	return NewClient(opts...), nil
}

// resolveProvider determines which ProviderAdapter handles the request,
// using req.Provider or the configured default.
func (c *Client) resolveProvider(req Request) (ProviderAdapter, error) {
	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		return nil, &ConfigurationError{
			SDKError: SDKError{Message: "no provider specified and no default provider configured"},
		}
	}

	adapter, ok := c.providers[name]
	if !ok {
		return nil, &ConfigurationError{
			SDKError: SDKError{Message: fmt.Sprintf("provider %q not registered", name)},
		}
	}
	return adapter, nil
}

// Complete sends a completion request through the middleware chain and on to
// the resolved provider adapter.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	handler := func(ctx context.Context, req Request) (*Response, error) {
		adapter, err := c.resolveProvider(req)
		if err != nil {
			return nil, err
		}
		return adapter.Complete(ctx, req)
	}

	// Wrap in reverse order so the first middleware registered is the
	// outermost layer.
	chain := handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw := c.middleware[i]
		next := chain
		chain = func(ctx context.Context, req Request) (*Response, error) {
			return mw(ctx, req, next)
		}
	}

	return chain(ctx, req)
}

// RegisterProvider adds or replaces a provider adapter on the client.
func (c *Client) RegisterProvider(name string, adapter ProviderAdapter) {
	c.providers[name] = adapter
	if c.defaultProvider == "" {
		c.defaultProvider = name
	}
}

// Close shuts down all registered provider adapters, combining any errors.
func (c *Client) Close() error {
	var combined error
	for name, adapter := range c.providers {
		if err := adapter.Close(); err != nil {
			if combined == nil {
				combined = fmt.Errorf("closing provider %q: %w", name, err)
			} else {
				combined = fmt.Errorf("%w; closing provider %q: %v", combined, name, err)
			}
		}
	}
	return combined
}
