package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabled(t *testing.T) {
	for _, addr := range []string{"", "  ", "off", "OFF", "disabled", "false"} {
		assert.False(t, Enabled(addr), addr)
	}
	assert.True(t, Enabled(":9102"))
}

func TestServeDisabledReturnsImmediately(t *testing.T) {
	assert.NoError(t, Serve(context.Background(), "off", nil))
}

func TestHandlerExposesConsoleSeries(t *testing.T) {
	SubmissionsTotal.WithLabelValues("goal", "submitted").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hrconsole_submissions_total{entity="goal",status="submitted"}`)

	rec = httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
