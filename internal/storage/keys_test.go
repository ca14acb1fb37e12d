package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "hubspot:state:org-1:user-1", StateKey("hubspot", "org-1", "user-1"))
	assert.Equal(t, "hubspot:credentials:org-1:user-1", CredentialsKey("hubspot", "org-1", "user-1"))
	assert.NotEqual(t, StateKey("hubspot", "a", "b"), StateKey("hubspot", "b", "a"))
}
