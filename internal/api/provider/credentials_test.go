package provider

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase/integrations/internal/api/apierrors"
	"golang.org/x/oauth2"
)

func TestParseCredentials(t *testing.T) {
	c, err := ParseCredentials([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":1800,"token_type":"bearer","hub_id":12345}`))
	require.NoError(t, err)
	assert.Equal(t, "at", c.AccessToken)
	assert.Equal(t, "rt", c.RefreshToken)
	assert.Equal(t, int64(1800), c.ExpiresIn)
	assert.Equal(t, PortalID("12345"), c.HubID)

	c, err = ParseCredentials([]byte(`{"access_token":"at","hub_id":"678"}`))
	require.NoError(t, err)
	assert.Equal(t, PortalID("678"), c.HubID)
}

func TestParseCredentialsToleratesOtherFields(t *testing.T) {
	c, err := ParseCredentials([]byte(`{"access_token":"at","expires_in":"1800","expiry":"soon","scopes":["crm.objects.contacts.read"],"hub_domain":"dev.example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "at", c.AccessToken)
	assert.Equal(t, int64(1800), c.ExpiresIn)
	assert.Nil(t, c.Expiry)
	assert.Equal(t, "soon", c.Extra["expiry"])
	assert.Equal(t, "dev.example.com", c.Extra["hub_domain"])
	assert.Equal(t, []interface{}{"crm.objects.contacts.read"}, c.Extra["scopes"])

	c, err = ParseCredentials([]byte(`{"access_token":"at","expires_in":{"seconds":1800},"hub_id":true}`))
	require.NoError(t, err)
	assert.Zero(t, c.ExpiresIn)
	assert.Empty(t, c.HubID)
	assert.Contains(t, c.Extra, "expires_in")
	assert.Equal(t, true, c.Extra["hub_id"])
}

func TestCredentialsJSONKeepsExtraMembers(t *testing.T) {
	raw := `{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":1800,"hub_id":"42","hub_domain":"dev.example.com","user_id":7}`

	var c Credentials
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	assert.Equal(t, json.Number("7"), c.Extra["user_id"])

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))

	out, err = json.Marshal(&c)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestCredentialsFromToken(t *testing.T) {
	expiry := time.Now().Add(30 * time.Minute)
	tok := (&oauth2.Token{
		AccessToken:  "at",
		RefreshToken: "rt",
		TokenType:    "bearer",
		Expiry:       expiry,
	}).WithExtra(map[string]interface{}{"expires_in": float64(1800), "hub_id": float64(4242)})

	c := credentialsFromToken(tok, []byte(`{"access_token":"at","expires_in":1800,"hub_id":4242,"hub_domain":"dev.example.com"}`))
	assert.Equal(t, "at", c.AccessToken)
	assert.Equal(t, "rt", c.RefreshToken)
	assert.Equal(t, int64(1800), c.ExpiresIn)
	assert.Equal(t, PortalID("4242"), c.HubID)
	require.NotNil(t, c.Expiry)
	assert.True(t, expiry.Equal(*c.Expiry))
	assert.Equal(t, map[string]interface{}{"hub_domain": "dev.example.com"}, c.Extra)

	c = credentialsFromToken(tok, nil)
	assert.Equal(t, int64(1800), c.ExpiresIn)
	assert.Equal(t, PortalID("4242"), c.HubID)
	assert.Nil(t, c.Extra)
}

func TestParseCredentialsErrors(t *testing.T) {
	cases := []struct {
		desc   string
		raw    string
		status int
		code   string
	}{
		{desc: "empty", raw: "", status: http.StatusBadRequest, code: apierrors.ErrorCodeBadCredentials},
		{desc: "not json", raw: "access_token=abc", status: http.StatusBadRequest, code: apierrors.ErrorCodeBadCredentials},
		{desc: "truncated", raw: `{"access_token":`, status: http.StatusBadRequest, code: apierrors.ErrorCodeBadCredentials},
		{desc: "no access token", raw: `{"refresh_token":"rt"}`, status: http.StatusUnauthorized, code: apierrors.ErrorCodeNoAccessToken},
		{desc: "empty access token", raw: `{"access_token":""}`, status: http.StatusUnauthorized, code: apierrors.ErrorCodeNoAccessToken},
		{desc: "array", raw: `["at"]`, status: http.StatusUnauthorized, code: apierrors.ErrorCodeNoAccessToken},
		{desc: "null", raw: `null`, status: http.StatusUnauthorized, code: apierrors.ErrorCodeNoAccessToken},
		{desc: "numeric token", raw: `{"access_token":42}`, status: http.StatusUnauthorized, code: apierrors.ErrorCodeNoAccessToken},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := ParseCredentials([]byte(c.raw))
			require.Error(t, err)

			httpErr, ok := err.(*apierrors.HTTPError)
			require.True(t, ok, "expected *HTTPError, got %T", err)
			assert.Equal(t, c.status, httpErr.HTTPStatus)
			assert.Equal(t, c.code, httpErr.ErrorCode)
		})
	}
}
