package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase/integrations/internal/utilities"
)

func TestGetLogEntryFromContextCarriesRequestFields(t *testing.T) {
	logger, hook := test.NewNullLogger()

	handler := NewStructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		LogEntrySetField(r, "integration", "hubspot")
		GetLogEntryFromContext(r.Context()).Warn("skipping resource")
	}))

	req := httptest.NewRequest(http.MethodPost, "/integrations/hubspot/load", nil)
	req = req.WithContext(utilities.WithRequestID(req.Context(), "req-42"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var found *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "skipping resource" {
			found = e
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, logrus.WarnLevel, found.Level)
	assert.Equal(t, "req-42", found.Data["request_id"])
	assert.Equal(t, "hubspot", found.Data["integration"])
	assert.Equal(t, "api", found.Data["component"])
}

func TestGetLogEntryFromContextFallsBackToStandardLogger(t *testing.T) {
	entry := GetLogEntryFromContext(context.Background())
	require.NotNil(t, entry)

	e, ok := entry.(*logrus.Entry)
	require.True(t, ok)
	assert.Equal(t, logrus.StandardLogger(), e.Logger)
}
