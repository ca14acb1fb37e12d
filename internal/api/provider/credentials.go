package provider

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/supabase/integrations/internal/api/apierrors"
	"golang.org/x/oauth2"
)

// PortalID accepts both numeric and string identifiers.
type PortalID string

func (p *PortalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = PortalID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PortalID(n.String())
	return nil
}

// Credentials is the token payload obtained from a provider's token
// endpoint. Refresh tokens are stored and returned as received. Members
// of the payload without a typed field are kept in Extra and written back
// inline.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	Expiry       *time.Time
	HubID        PortalID

	Extra map[string]interface{}
}

func (c Credentials) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.Extra)+6)
	for k, v := range c.Extra {
		out[k] = v
	}

	out["access_token"] = c.AccessToken
	if c.RefreshToken != "" {
		out["refresh_token"] = c.RefreshToken
	}
	if c.TokenType != "" {
		out["token_type"] = c.TokenType
	}
	if c.ExpiresIn != 0 {
		out["expires_in"] = c.ExpiresIn
	}
	if c.Expiry != nil {
		out["expiry"] = c.Expiry
	}
	if c.HubID != "" {
		out["hub_id"] = c.HubID
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes the typed members it can and keeps everything
// else, including typed members of an unexpected shape, in Extra.
func (c *Credentials) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*c = Credentials{}
	for key, raw := range fields {
		var ok bool
		switch key {
		case "access_token":
			ok = json.Unmarshal(raw, &c.AccessToken) == nil
		case "refresh_token":
			ok = json.Unmarshal(raw, &c.RefreshToken) == nil
		case "token_type":
			ok = json.Unmarshal(raw, &c.TokenType) == nil
		case "expires_in":
			var n json.Number
			if json.Unmarshal(raw, &n) == nil {
				c.ExpiresIn, ok = seconds(n)
			}
		case "expiry":
			var t time.Time
			if json.Unmarshal(raw, &t) == nil && !t.IsZero() {
				c.Expiry, ok = &t, true
			}
		case "hub_id":
			ok = json.Unmarshal(raw, &c.HubID) == nil
		}
		if ok {
			continue
		}

		if c.Extra == nil {
			c.Extra = make(map[string]interface{})
		}
		c.Extra[key] = decodeExtra(raw)
	}
	return nil
}

func decodeExtra(raw json.RawMessage) interface{} {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	return v
}

// seconds reads a duration in whole seconds from the shapes token
// endpoints use: JSON numbers, numeric strings and form values.
func seconds(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil && f <= math.MaxInt64 {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case string:
		return seconds(json.Number(n))
	}
	return 0, false
}

// credentialsFromToken combines the token oauth2 parsed with the raw reply
// so provider-specific members survive.
func credentialsFromToken(tok *oauth2.Token, body []byte) *Credentials {
	c := &Credentials{}
	if len(body) > 0 {
		// form encoded replies are not JSON and only reach Extra through tok
		_ = json.Unmarshal(body, c)
	}

	c.AccessToken = tok.AccessToken
	c.RefreshToken = tok.RefreshToken
	c.TokenType = tok.TokenType
	c.Expiry = nil
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		c.Expiry = &expiry
	}

	if c.ExpiresIn == 0 {
		if n, ok := seconds(tok.Extra("expires_in")); ok {
			c.ExpiresIn = n
		}
	}

	if c.HubID == "" {
		switch v := tok.Extra("hub_id").(type) {
		case string:
			c.HubID = PortalID(v)
		case float64:
			c.HubID = PortalID(strconv.FormatFloat(v, 'f', -1, 64))
		case json.Number:
			c.HubID = PortalID(v.String())
		}
	}

	return c
}

// ParseCredentials decodes caller-supplied credentials. Input that is not
// JSON at all is a bad request; JSON without a usable access token is
// unauthorized. Other members are accepted in any shape.
func ParseCredentials(raw []byte) (*Credentials, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, apierrors.NewBadRequestError(apierrors.ErrorCodeBadCredentials, "Invalid credentials format")
	}

	var c Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, apierrors.NewUnauthorizedError(apierrors.ErrorCodeNoAccessToken, "Invalid credentials").WithInternalError(err)
	}
	if c.AccessToken == "" {
		return nil, apierrors.NewUnauthorizedError(apierrors.ErrorCodeNoAccessToken, "Credentials are missing an access token")
	}
	return &c, nil
}
