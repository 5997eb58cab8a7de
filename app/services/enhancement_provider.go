// Package services provides external service integrations and technical concerns like the enhancement provider client
package services

import (
	"context"
	"fmt"

	"github.com/amirphl/ihancer-relay/config"
)

// EnhanceInput is what a provider needs to enhance one image.
type EnhanceInput struct {
	Image        []byte
	Method       int
	MaxImageSize string
}

// EnhanceResult is the opaque provider output.
type EnhanceResult struct {
	Data        []byte
	ContentType string
	StatusCode  int
}

// EnhancementProvider turns image bytes into enhanced image bytes.
type EnhancementProvider interface {
	Name() string
	Enhance(ctx context.Context, in EnhanceInput) (*EnhanceResult, error)
}

// UpstreamStatusError reports a non-2xx answer from the provider.
type UpstreamStatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Provider, e.StatusCode)
}

// NewEnhancementProvider selects the provider named by configuration
func NewEnhancementProvider(cfg config.EnhancerConfig) (EnhancementProvider, error) {
	switch cfg.Provider {
	case "", "ihancer":
		return NewIhancerClient(cfg), nil
	case "mock":
		return NewMockEnhancementProvider(), nil
	default:
		return nil, fmt.Errorf("unknown enhancement provider %q", cfg.Provider)
	}
}
