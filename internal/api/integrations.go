package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/supabase/integrations/internal/api/apierrors"
	"github.com/supabase/integrations/internal/api/provider"
	"github.com/supabase/integrations/internal/api/shared"
	"github.com/supabase/integrations/internal/conf"
	"github.com/supabase/integrations/internal/observability"
	"github.com/supabase/integrations/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrCredentialsNotFound is returned when no usable credentials are cached
// for an (org, user) pair.
var ErrCredentialsNotFound = errors.New("credentials not found")

var (
	authorizationsCounter = observability.ObtainMetricCounter("integration_authorizations_total", "Number of authorization URLs issued")
	callbacksCounter      = observability.ObtainMetricCounter("integration_callbacks_total", "Number of OAuth callbacks handled by outcome")
)

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}} Authorization Complete</title>
    <script>
        window.onload = function() {
            if (window.opener) {
                window.opener.postMessage({ source: {{.Source}}, success: true }, '*');
            }
            window.close();
        }
    </script>
</head>
<body>
    <h3>Authorization successful! You can close this window.</h3>
</body>
</html>
`))

// IdentityParams names the (user, org) pair an integration belongs to.
type IdentityParams struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
}

func (p *IdentityParams) validate() error {
	p.UserID = strings.TrimSpace(p.UserID)
	p.OrgID = strings.TrimSpace(p.OrgID)

	if p.UserID == "" || p.OrgID == "" {
		return apierrors.NewBadRequestError(apierrors.ErrorCodeValidationFailed, "user_id and org_id are required")
	}
	// ids are joined with ':' into cache keys
	if strings.Contains(p.UserID, ":") || strings.Contains(p.OrgID, ":") {
		return apierrors.NewBadRequestError(apierrors.ErrorCodeValidationFailed, "user_id and org_id must not contain ':'")
	}
	return nil
}

// LoadParams carries caller-held credentials, either as a JSON object or
// as a JSON encoded string.
type LoadParams struct {
	Credentials json.RawMessage `json:"credentials"`
}

func (p *LoadParams) raw() []byte {
	raw := bytes.TrimSpace(p.Credentials)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return []byte(s)
		}
	}
	return raw
}

// oauthFlow drives the authorization code handshake for one integration.
type oauthFlow struct {
	cache    *storage.Connection
	config   *conf.IntegrationsConfiguration
	provider provider.IntegrationProvider
}

func (a *API) flow(p provider.IntegrationProvider) *oauthFlow {
	return &oauthFlow{cache: a.cache, config: &a.config.Integrations, provider: p}
}

// AuthorizationURL stores a fresh state for the pair, replacing any pending
// one, and returns the provider URL carrying it.
func (f *oauthFlow) AuthorizationURL(ctx context.Context, userID, orgID string) (string, error) {
	state := provider.NewAuthState(userID, orgID)

	encoded, err := state.Encode()
	if err != nil {
		return "", apierrors.NewInternalServerError("Unable to encode state").WithInternalError(err)
	}

	key := storage.StateKey(f.provider.Name(), orgID, userID)
	if err := f.cache.SetJSON(ctx, key, state, f.config.StateTTL); err != nil {
		return "", apierrors.NewInternalServerError("Unable to store state").WithInternalError(err)
	}

	return f.provider.AuthCodeURL(encoded), nil
}

// Callback validates the redirect from the provider, exchanges the code
// and caches the resulting credentials. The pending state is consumed
// before the exchange so a code can only be redeemed once.
func (f *oauthFlow) Callback(ctx context.Context, query url.Values) (*provider.AuthState, error) {
	if providerErr := query.Get("error"); providerErr != "" {
		description := query.Get("error_description")
		if description == "" {
			description = "Unknown error"
		}
		return nil, apierrors.NewBadRequestError(apierrors.ErrorCodeOAuthProviderError, "Authorization error: %s", description).
			WithInternalMessage("provider reported %s: %s", providerErr, description)
	}

	code, encoded := query.Get("code"), query.Get("state")
	if code == "" || encoded == "" {
		return nil, apierrors.NewBadRequestError(apierrors.ErrorCodeBadOAuthCallback, "Missing required parameters")
	}

	state, err := provider.DecodeAuthState(encoded)
	if err != nil {
		return nil, apierrors.NewBadRequestError(apierrors.ErrorCodeBadOAuthState, "Invalid state parameter").WithInternalError(err)
	}

	key := storage.StateKey(f.provider.Name(), state.OrgID, state.UserID)

	var stored provider.AuthState
	if err := f.cache.GetJSON(ctx, key, &stored); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierrors.NewBadRequestError(apierrors.ErrorCodeBadOAuthState, "Invalid state parameter").
				WithInternalMessage("no pending state for org %q user %q", state.OrgID, state.UserID)
		}
		return nil, apierrors.NewInternalServerError("Unable to read state").WithInternalError(err)
	}

	if !stored.Matches(state) {
		return nil, apierrors.NewBadRequestError(apierrors.ErrorCodeBadOAuthState, "Invalid state parameter").
			WithInternalMessage("state mismatch for org %q user %q", state.OrgID, state.UserID)
	}

	if err := f.cache.Delete(ctx, key); err != nil {
		return nil, apierrors.NewInternalServerError("Unable to consume state").WithInternalError(err)
	}

	creds, err := f.provider.GetOAuthToken(ctx, code)
	if err != nil {
		return nil, err
	}

	credsKey := storage.CredentialsKey(f.provider.Name(), state.OrgID, state.UserID)
	if err := f.cache.SetJSON(ctx, credsKey, creds, f.config.CredentialsTTL); err != nil {
		return nil, apierrors.NewInternalServerError("Unable to store credentials").WithInternalError(err)
	}

	return state, nil
}

// Credentials returns the cached credentials for the pair. Absent or
// unreadable entries yield ErrCredentialsNotFound.
func (f *oauthFlow) Credentials(ctx context.Context, userID, orgID string) (*provider.Credentials, error) {
	key := storage.CredentialsKey(f.provider.Name(), orgID, userID)

	data, err := f.cache.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrCredentialsNotFound
	} else if err != nil {
		return nil, err
	}

	var creds provider.Credentials
	if jerr := json.Unmarshal(data, &creds); jerr != nil || creds.AccessToken == "" {
		if derr := f.cache.Delete(ctx, key); derr != nil {
			return nil, derr
		}
		return nil, ErrCredentialsNotFound
	}

	if f.config.DeleteCredentialsOnRead {
		if err := f.cache.Delete(ctx, key); err != nil {
			return nil, err
		}
	}

	return &creds, nil
}

type IntegrationSummary struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// ListIntegrations reports the integrations this instance knows about.
func (a *API) ListIntegrations(w http.ResponseWriter, r *http.Request) error {
	return shared.SendJSON(w, http.StatusOK, []IntegrationSummary{
		{Name: provider.HubSpotProviderName, Enabled: a.config.External.HubSpot.Enabled},
	})
}

// IntegrationAuthorize returns the URL the user should be sent to.
func (a *API) IntegrationAuthorize(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	p := shared.GetIntegration(ctx)

	params := &IdentityParams{}
	if err := retrieveRequestParams(r, params); err != nil {
		return err
	}
	if err := params.validate(); err != nil {
		return err
	}

	authURL, err := a.flow(p).AuthorizationURL(ctx, params.UserID, params.OrgID)
	if err != nil {
		return err
	}

	authorizationsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("integration", p.Name())))
	observability.LogEntrySetFields(r, logrus.Fields{
		"user_id": params.UserID,
		"org_id":  params.OrgID,
	})

	return shared.SendJSON(w, http.StatusOK, map[string]string{"url": authURL})
}

// IntegrationCallback handles the provider redirect.
func (a *API) IntegrationCallback(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	p := shared.GetIntegration(ctx)

	state, err := a.flow(p).Callback(ctx, r.URL.Query())
	if err != nil {
		callbacksCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("integration", p.Name()),
			attribute.String("outcome", "failed"),
		))
		return err
	}

	callbacksCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("integration", p.Name()),
		attribute.String("outcome", "succeeded"),
	))
	observability.LogEntrySetFields(r, logrus.Fields{
		"user_id": state.UserID,
		"org_id":  state.OrgID,
	})

	var page bytes.Buffer
	if err := callbackPage.Execute(&page, map[string]string{
		"Title":  integrationTitle(p.Name()),
		"Source": p.Name() + "-oauth",
	}); err != nil {
		return apierrors.NewInternalServerError("Unable to render callback page").WithInternalError(err)
	}

	return shared.SendHTML(w, http.StatusOK, page.Bytes())
}

// IntegrationCredentials hands the cached credentials to the caller.
func (a *API) IntegrationCredentials(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	p := shared.GetIntegration(ctx)

	params := &IdentityParams{}
	if err := retrieveRequestParams(r, params); err != nil {
		return err
	}
	if err := params.validate(); err != nil {
		return err
	}

	creds, err := a.flow(p).Credentials(ctx, params.UserID, params.OrgID)
	if errors.Is(err, ErrCredentialsNotFound) {
		return apierrors.NewBadRequestError(apierrors.ErrorCodeCredentialsNotFound, "No credentials found")
	} else if err != nil {
		return apierrors.NewInternalServerError("Unable to read credentials").WithInternalError(err)
	}

	return shared.SendJSON(w, http.StatusOK, creds)
}

// IntegrationLoad lists the provider records visible to the credentials.
func (a *API) IntegrationLoad(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	p := shared.GetIntegration(ctx)

	params := &LoadParams{}
	if err := retrieveRequestParams(r, params); err != nil {
		return err
	}

	creds, err := provider.ParseCredentials(params.raw())
	if err != nil {
		return err
	}

	list, err := p.ListItems(ctx, creds)
	if err != nil {
		return err
	}

	return shared.SendJSON(w, http.StatusOK, list)
}

func integrationTitle(name string) string {
	switch name {
	case provider.HubSpotProviderName:
		return "HubSpot"
	default:
		return name
	}
}
