package api

import (
	"context"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v5"
	"github.com/didip/tollbooth/v5/limiter"
	"github.com/rs/cors"
	"github.com/sebest/xff"
	"github.com/sirupsen/logrus"
	"github.com/supabase/integrations/internal/api/apierrors"
	"github.com/supabase/integrations/internal/api/provider"
	"github.com/supabase/integrations/internal/api/shared"
	"github.com/supabase/integrations/internal/conf"
	"github.com/supabase/integrations/internal/observability"
	"github.com/supabase/integrations/internal/storage"
)

// API is the main REST API
type API struct {
	handler http.Handler
	cache   *storage.Connection
	config  *conf.GlobalConfiguration
	version string
}

// NewAPIWithVersion creates a new REST API using the specified version
func NewAPIWithVersion(ctx context.Context, globalConfig *conf.GlobalConfiguration, cache *storage.Connection, version string) *API {
	api := &API{config: globalConfig, cache: cache, version: version}

	xffmw, _ := xff.Default()
	logger := observability.NewStructuredLogger(logrus.StandardLogger())

	r := newRouter()
	r.Use(addRequestID(globalConfig))

	// request tracing should be added only when tracing or metrics is enabled
	if globalConfig.Tracing.Enabled || globalConfig.Metrics.Enabled {
		r.UseBypass(observability.RequestTracing())
	}

	r.UseBypass(xffmw.Handler)
	r.UseBypass(recoverer)

	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	r.Get("/health", api.HealthCheck)

	r.Route("/integrations", func(r *router) {
		r.UseBypass(logger)

		r.Get("/", api.ListIntegrations)

		r.Route("/{provider}", func(r *router) {
			r.Use(api.loadIntegration)

			authorize := r
			if rate := globalConfig.RateLimitAuthorize; rate > 0 {
				authorize = r.With(api.limitHandler(
					// Allow requests at the specified rate per minute.
					tollbooth.NewLimiter(rate/60, &limiter.ExpirableOptions{
						DefaultExpirationTTL: time.Hour,
					}).SetBurst(int(rate)),
				))
			}
			authorize.Post("/authorize", api.IntegrationAuthorize)

			r.Get("/oauth2callback", api.IntegrationCallback)
			r.Post("/credentials", api.IntegrationCredentials)
			r.Post("/load", api.IntegrationLoad)
		})
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   globalConfig.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   globalConfig.CORS.AllAllowedHeaders([]string{"Accept", "Authorization", "Content-Type", "X-Client-IP", "X-Client-Info"}),
		AllowCredentials: true,
	})

	api.handler = corsHandler.Handler(r)
	return api
}

// ServeHTTP lets the API be mounted or exercised directly in tests.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

type HealthCheckResponse struct {
	Version     string `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HealthCheck endpoint indicates if the integrations api service is available
func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) error {
	return shared.SendJSON(w, http.StatusOK, HealthCheckResponse{
		Version:     a.version,
		Name:        "Integrations",
		Description: "Integrations connects third-party OAuth providers and loads their records",
	})
}

// Provider returns the configured integration for name.
func (a *API) Provider(name string) (provider.IntegrationProvider, error) {
	config := a.config

	switch name {
	case provider.HubSpotProviderName:
		if !config.External.HubSpot.Enabled {
			return nil, apierrors.NewBadRequestError(apierrors.ErrorCodeProviderDisabled, "Integration %s is disabled", name)
		}
		p, err := provider.NewHubSpotProvider(config.External.HubSpot, config.Integrations)
		if err != nil {
			return nil, apierrors.NewInternalServerError("Unable to configure integration %s", name).WithInternalError(err)
		}
		return p, nil
	default:
		return nil, apierrors.NewNotFoundError(apierrors.ErrorCodeProviderNotFound, "Unsupported integration: %s", name)
	}
}
