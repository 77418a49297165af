package youtube

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/option"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/cache"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/quota"
)

// ClientSource returns an HTTP client authorised as the given user.
type ClientSource interface {
	Client(ctx context.Context, userID string) (*http.Client, error)
}

// Provider builds per-user Services that share one cache and quota tracker.
type Provider struct {
	source ClientSource
	apiKey string
	cache  *cache.Layer
	quota  *quota.Tracker
	opts   []option.ClientOption
}

// NewProvider creates a Provider. opts are passed to every client (tests use
// option.WithEndpoint).
func NewProvider(source ClientSource, apiKey string, c *cache.Layer, q *quota.Tracker, opts ...option.ClientOption) *Provider {
	return &Provider{source: source, apiKey: apiKey, cache: c, quota: q, opts: opts}
}

// Quota returns the shared quota tracker.
func (p *Provider) Quota() *quota.Tracker {
	return p.quota
}

// ForUser returns a Service acting on behalf of userID.
func (p *Provider) ForUser(ctx context.Context, userID string) (*Service, error) {
	httpClient, err := p.source.Client(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client: %w", err)
	}

	api, err := NewClient(ctx, withAPIKey(httpClient, p.apiKey), p.opts...)
	if err != nil {
		return nil, err
	}
	return NewService(api, userID, p.cache, p.quota), nil
}
