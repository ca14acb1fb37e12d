package shared

import (
	"context"

	"github.com/supabase/integrations/internal/api/provider"
)

// ContextKey is the type for context keys to avoid collisions
type ContextKey string

func (c ContextKey) String() string {
	return "integrations api context key " + string(c)
}

// Context keys used across packages
const (
	IntegrationKey ContextKey = "integration"
)

// WithIntegration adds the integration a request is routed to.
func WithIntegration(ctx context.Context, p provider.IntegrationProvider) context.Context {
	return context.WithValue(ctx, IntegrationKey, p)
}

// GetIntegration reads the integration from the context
func GetIntegration(ctx context.Context) provider.IntegrationProvider {
	if ctx == nil {
		return nil
	}
	obj := ctx.Value(IntegrationKey)
	if obj == nil {
		return nil
	}
	return obj.(provider.IntegrationProvider)
}
