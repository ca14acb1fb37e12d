package provider

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/supabase/integrations/internal/crypto"
)

// AuthState is the anti-CSRF value round-tripped through the provider's
// authorization redirect. It identifies which (org, user) pair started the
// flow so the callback can look up the pending state.
type AuthState struct {
	State  string `json:"state"`
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
}

func NewAuthState(userID, orgID string) *AuthState {
	return &AuthState{
		State:  crypto.SecureToken(32),
		UserID: userID,
		OrgID:  orgID,
	}
}

// Encode returns the value placed in the state query parameter.
func (s *AuthState) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "encoding oauth state")
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Matches reports whether other carries the same nonce for the same pair.
func (s *AuthState) Matches(other *AuthState) bool {
	if s == nil || other == nil {
		return false
	}
	ok := crypto.Equal(s.State, other.State)
	ok = crypto.Equal(s.UserID, other.UserID) && ok
	ok = crypto.Equal(s.OrgID, other.OrgID) && ok
	return ok
}

// DecodeAuthState parses a state query parameter produced by Encode.
func DecodeAuthState(encoded string) (*AuthState, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("empty oauth state")
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		// some clients strip the padding from query parameters
		data, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, errors.Wrap(err, "decoding oauth state")
		}
	}

	var s AuthState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parsing oauth state")
	}
	if s.State == "" || s.UserID == "" || s.OrgID == "" {
		return nil, errors.New("oauth state is missing required fields")
	}
	return &s, nil
}
