package storage

import "strings"

const (
	stateKind       = "state"
	credentialsKind = "credentials"
)

func key(provider, kind, orgID, userID string) string {
	return strings.Join([]string{provider, kind, orgID, userID}, ":")
}

// StateKey is where the pending OAuth state for an (org, user) pair lives.
func StateKey(provider, orgID, userID string) string {
	return key(provider, stateKind, orgID, userID)
}

// CredentialsKey is where exchanged tokens for an (org, user) pair live.
func CredentialsKey(provider, orgID, userID string) string {
	return key(provider, credentialsKind, orgID, userID)
}
