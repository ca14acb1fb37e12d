package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase/integrations/internal/api/apierrors"
	"github.com/supabase/integrations/internal/conf"
	"gopkg.in/h2non/gock.v1"
)

const (
	testHubSpotAppHost = "https://app.hubspot.test"
	testHubSpotAPIHost = "https://api.hubspot.test"
)

func newTestHubSpotProvider(t *testing.T) *hubspotProvider {
	p, err := NewHubSpotProvider(conf.OAuthProviderConfiguration{
		Enabled:     true,
		ClientID:    []string{"client-id"},
		Secret:      "client-secret",
		RedirectURI: "http://localhost:8000/integrations/hubspot/oauth2callback",
		URL:         testHubSpotAppHost + "/",
		ApiURL:      testHubSpotAPIHost,
		Scopes:      []string{"oauth", "crm.objects.contacts.read"},
	}, conf.IntegrationsConfiguration{PageSize: 10, HTTPTimeout: time.Second})
	require.NoError(t, err)

	hp, ok := p.(*hubspotProvider)
	require.True(t, ok)

	gock.InterceptClient(hp.client)
	t.Cleanup(func() {
		gock.RestoreClient(hp.client)
		gock.Off()
	})
	return hp
}

func TestNewHubSpotProviderDefaults(t *testing.T) {
	p, err := NewHubSpotProvider(conf.OAuthProviderConfiguration{
		Enabled:     true,
		ClientID:    []string{"client-id"},
		Secret:      "client-secret",
		RedirectURI: "https://example.com/callback",
	}, conf.IntegrationsConfiguration{})
	require.NoError(t, err)

	hp := p.(*hubspotProvider)
	assert.Equal(t, "https://app.hubspot.com/oauth/authorize", hp.Endpoint.AuthURL)
	assert.Equal(t, "https://api.hubapi.com/oauth/v1/token", hp.Endpoint.TokenURL)
	assert.Equal(t, "https://api.hubapi.com", hp.APIHost)
	assert.Equal(t, 10, hp.PageSize)
	assert.Equal(t, defaultTimeout, hp.client.Timeout)
	assert.Equal(t, HubSpotProviderName, hp.Name())
}

func TestNewHubSpotProviderRequiresSecret(t *testing.T) {
	_, err := NewHubSpotProvider(conf.OAuthProviderConfiguration{
		Enabled:  true,
		ClientID: []string{"client-id"},
	}, conf.IntegrationsConfiguration{})
	require.Error(t, err)
}

func TestHubSpotAuthCodeURL(t *testing.T) {
	p := newTestHubSpotProvider(t)

	raw := p.AuthCodeURL("c3RhdGU=")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "app.hubspot.test", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8000/integrations/hubspot/oauth2callback", q.Get("redirect_uri"))
	assert.Equal(t, "oauth crm.objects.contacts.read", q.Get("scope"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "c3RhdGU=", q.Get("state"))
}

func TestHubSpotGetOAuthToken(t *testing.T) {
	p := newTestHubSpotProvider(t)

	gock.New(testHubSpotAPIHost).
		Post("/oauth/v1/token").
		MatchType("url").
		BodyString("code=auth-code").
		Times(1).
		Reply(http.StatusOK).
		JSON(map[string]interface{}{
			"access_token":  "access-token",
			"refresh_token": "refresh-token",
			"token_type":    "bearer",
			"expires_in":    1800,
			"hub_id":        4242,
			"hub_domain":    "dev-portal.example.com",
			"id_token":      "id-token",
		})

	creds, err := p.GetOAuthToken(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "access-token", creds.AccessToken)
	assert.Equal(t, "refresh-token", creds.RefreshToken)
	assert.Equal(t, int64(1800), creds.ExpiresIn)
	assert.Equal(t, PortalID("4242"), creds.HubID)
	require.NotNil(t, creds.Expiry)
	assert.Equal(t, map[string]interface{}{
		"hub_domain": "dev-portal.example.com",
		"id_token":   "id-token",
	}, creds.Extra)
	assert.True(t, gock.IsDone())

	stored, err := json.Marshal(creds)
	require.NoError(t, err)

	var blob map[string]interface{}
	require.NoError(t, json.Unmarshal(stored, &blob))
	assert.Equal(t, float64(1800), blob["expires_in"])
	assert.Equal(t, "dev-portal.example.com", blob["hub_domain"])
	assert.Equal(t, "id-token", blob["id_token"])
	assert.Equal(t, "4242", blob["hub_id"])
}

func TestHubSpotGetOAuthTokenFormReply(t *testing.T) {
	p := newTestHubSpotProvider(t)

	gock.New(testHubSpotAPIHost).
		Post("/oauth/v1/token").
		Times(1).
		Reply(http.StatusOK).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		BodyString("access_token=access-token&token_type=bearer&expires_in=600")

	creds, err := p.GetOAuthToken(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "access-token", creds.AccessToken)
	assert.Equal(t, int64(600), creds.ExpiresIn)
	assert.Empty(t, creds.Extra)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestHubSpotGetOAuthTokenTimeout(t *testing.T) {
	p := newTestHubSpotProvider(t)

	gock.New(testHubSpotAPIHost).
		Post("/oauth/v1/token").
		Times(1).
		ReplyError(timeoutError{})

	_, err := p.GetOAuthToken(context.Background(), "auth-code")
	require.Error(t, err)

	httpErr, ok := err.(*apierrors.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusGatewayTimeout, httpErr.HTTPStatus)
	assert.Equal(t, apierrors.ErrorCodeRequestTimeout, httpErr.ErrorCode)
}

func TestHubSpotGetOAuthTokenRejected(t *testing.T) {
	p := newTestHubSpotProvider(t)

	gock.New(testHubSpotAPIHost).
		Post("/oauth/v1/token").
		Times(1).
		Reply(http.StatusBadRequest).
		JSON(map[string]interface{}{
			"status":  "BAD_AUTH_CODE",
			"message": "missing or unknown auth code",
		})

	_, err := p.GetOAuthToken(context.Background(), "bad-code")
	require.Error(t, err)

	httpErr, ok := err.(*apierrors.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.HTTPStatus)
	assert.Equal(t, apierrors.ErrorCodeProviderUnavailable, httpErr.ErrorCode)
	assert.Contains(t, httpErr.Message, "missing or unknown auth code")
	assert.True(t, gock.IsDone())
}

func TestHubSpotListItems(t *testing.T) {
	p := newTestHubSpotProvider(t)

	gock.New(testHubSpotAPIHost).
		Get("/crm/v3/objects/contacts").
		MatchParam("limit", "10").
		MatchHeader("Authorization", "^Bearer access-token$").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{
			"results": []map[string]interface{}{
				{
					"id":         "101",
					"createdAt":  "2024-01-02T03:04:05.000Z",
					"updatedAt":  "2024-02-03T04:05:06.000Z",
					"properties": map[string]interface{}{
						"firstname":           "Ada",
						"lastname":            "Lovelace",
						"email":               "ada@example.com",
						"company":             "Analytical Engines",
						"associatedcompanyid": "201",
					},
				},
				{
					"id":         "102",
					"properties": map[string]interface{}{"email": "only@example.com"},
				},
				{
					"id":         "103",
					"properties": map[string]interface{}{"firstname": nil},
				},
			},
		})

	gock.New(testHubSpotAPIHost).
		Get("/crm/v3/objects/companies").
		MatchParam("limit", "10").
		MatchHeader("Authorization", "^Bearer access-token$").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{
			"results": []map[string]interface{}{
				{"id": "201", "properties": map[string]interface{}{"name": "Acme", "domain": "acme.test"}},
				{"id": "202", "properties": map[string]interface{}{}},
			},
		})

	list, err := p.ListItems(context.Background(), &Credentials{AccessToken: "access-token", HubID: "4242"})
	require.NoError(t, err)
	require.True(t, gock.IsDone())

	require.Len(t, list.Items, 5)
	assert.Equal(t, []ResourceResult{
		{Resource: "contacts", Status: ResourceOK, Count: 3, HTTPStatus: http.StatusOK},
		{Resource: "companies", Status: ResourceOK, Count: 2, HTTPStatus: http.StatusOK},
	}, list.Resources)

	ada := list.Items[0]
	assert.Equal(t, "101", ada.ID)
	assert.Equal(t, "contact", ada.Type)
	assert.Equal(t, HubSpotProviderName, ada.IntegrationType)
	assert.Equal(t, "Ada Lovelace", ada.Name)
	assert.Equal(t, "Email: ada@example.com", ada.Description)
	assert.Equal(t, testHubSpotAppHost+"/contacts/4242/record/0-1/101", ada.URL)
	assert.Equal(t, "101", ada.Metadata["hubspot_id"])
	assert.Equal(t, "ada@example.com", ada.Metadata["email"])
	require.NotNil(t, ada.CreationTime)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), *ada.CreationTime)
	require.NotNil(t, ada.LastModifiedTime)
	assert.False(t, ada.Directory)
	assert.Equal(t, "201", ada.ParentID)
	assert.Equal(t, "Analytical Engines", ada.ParentPathOrName)

	assert.Equal(t, "only@example.com", list.Items[1].Name)
	assert.Empty(t, list.Items[1].ParentID)
	assert.Equal(t, "Unnamed Contact", list.Items[2].Name)
	assert.Equal(t, "Email: N/A", list.Items[2].Description)
	assert.NotContains(t, list.Items[2].Metadata, "firstname")

	acme := list.Items[3]
	assert.Equal(t, "company", acme.Type)
	assert.Equal(t, "Acme", acme.Name)
	assert.Equal(t, "Website: N/A", acme.Description)
	assert.Equal(t, "acme.test", acme.Metadata["domain"])
	assert.Equal(t, testHubSpotAppHost+"/contacts/4242/record/0-2/201", acme.URL)
	assert.True(t, acme.Directory)

	assert.Equal(t, "Unnamed Company", list.Items[4].Name)
	assert.Equal(t, "Website: N/A", list.Items[4].Description)
}

func TestHubSpotListItemsPartialFailure(t *testing.T) {
	p := newTestHubSpotProvider(t)

	gock.New(testHubSpotAPIHost).
		Get("/crm/v3/objects/contacts").
		Reply(http.StatusForbidden).
		JSON(map[string]interface{}{
			"status":  "error",
			"message": "This app hasn't been granted all required scopes",
		})

	gock.New(testHubSpotAPIHost).
		Get("/crm/v3/objects/companies").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{
			"results": []map[string]interface{}{
				{"id": "201", "properties": map[string]interface{}{"name": "Acme"}},
			},
		})

	list, err := p.ListItems(context.Background(), &Credentials{AccessToken: "access-token"})
	require.NoError(t, err)

	require.Len(t, list.Items, 1)
	assert.Equal(t, "Acme", list.Items[0].Name)
	assert.Equal(t, testHubSpotAppHost+"/companies/201", list.Items[0].URL)

	require.Len(t, list.Resources, 2)
	assert.Equal(t, "contacts", list.Resources[0].Resource)
	assert.Equal(t, ResourceSkipped, list.Resources[0].Status)
	assert.Equal(t, http.StatusForbidden, list.Resources[0].HTTPStatus)
	assert.Contains(t, list.Resources[0].Reason, "required scopes")
	assert.Equal(t, ResourceOK, list.Resources[1].Status)
}

func TestHubSpotListItemsBadPayload(t *testing.T) {
	p := newTestHubSpotProvider(t)

	gock.New(testHubSpotAPIHost).
		Get("/crm/v3/objects/contacts").
		Reply(http.StatusOK).
		BodyString("<html>not json</html>")

	gock.New(testHubSpotAPIHost).
		Get("/crm/v3/objects/companies").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{"results": []interface{}{}})

	list, err := p.ListItems(context.Background(), &Credentials{AccessToken: "access-token"})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.NotNil(t, list.Items)
	assert.Equal(t, ResourceSkipped, list.Resources[0].Status)
	assert.Equal(t, ResourceOK, list.Resources[1].Status)
	assert.Equal(t, 0, list.Resources[1].Count)
}

func TestHubSpotListItemsWithoutAccessToken(t *testing.T) {
	p := newTestHubSpotProvider(t)

	_, err := p.ListItems(context.Background(), &Credentials{RefreshToken: "rt"})
	require.Error(t, err)

	httpErr, ok := err.(*apierrors.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.HTTPStatus)
	assert.False(t, gock.HasUnmatchedRequest())
}
