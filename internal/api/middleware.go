package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/didip/tollbooth/v5"
	"github.com/didip/tollbooth/v5/limiter"
	"github.com/go-chi/chi/v5"
	"github.com/supabase/integrations/internal/api/apierrors"
	"github.com/supabase/integrations/internal/api/shared"
	"github.com/supabase/integrations/internal/observability"
	"github.com/supabase/integrations/internal/utilities"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var rateLimitCounter = observability.ObtainMetricCounter("integration_rate_limit_total", "Number of times a request rate limit has been triggered")

// limitHandler keys the limiter on the configured rate limit header, or on
// the client IP when no header is configured.
func (a *API) limitHandler(lmt *limiter.Limiter) middlewareHandler {
	return func(w http.ResponseWriter, req *http.Request) (context.Context, error) {
		c := req.Context()

		key := utilities.GetIPAddress(req)
		if limitHeader := a.config.RateLimitHeader; limitHeader != "" {
			key = req.Header.Get(limitHeader)

			if key == "" {
				log := observability.GetLogEntry(req)
				log.WithField("header", limitHeader).Warn("request does not have a value for the rate limiting header, rate limiting is not applied")
				return c, nil
			}
		}

		if err := tollbooth.LimitByKeys(lmt, []string{key}); err != nil {
			rateLimitCounter.Add(c, 1, metric.WithAttributes(attribute.String("path", req.URL.Path)))
			return c, apierrors.NewTooManyRequestsError(apierrors.ErrorCodeOverRequestRateLimit, "Request rate limit reached")
		}
		return c, nil
	}
}

// loadIntegration resolves the {provider} path segment and stores the
// configured integration on the request context.
func (a *API) loadIntegration(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	name := strings.ToLower(chi.URLParam(r, "provider"))

	p, err := a.Provider(name)
	if err != nil {
		return nil, err
	}

	observability.LogEntrySetField(r, "integration", name)
	return shared.WithIntegration(r.Context(), p), nil
}
