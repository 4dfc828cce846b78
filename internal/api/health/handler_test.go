package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropadvisor/internal/services/recommendation"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

type staticEngine struct {
	state recommendation.State
}

func (e staticEngine) Status() recommendation.Status {
	return recommendation.Status{State: e.state, K: 5}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Health(ctx context.Context) error { return f(ctx) }

func decode(t *testing.T, rec *httptest.ResponseRecorder) HealthStatus {
	t.Helper()
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return status
}

func TestHandleReadiness(t *testing.T) {
	tests := []struct {
		state recommendation.State
		code  int
	}{
		{recommendation.StateUninitialized, http.StatusServiceUnavailable},
		{recommendation.StateLoading, http.StatusServiceUnavailable},
		{recommendation.StateFailed, http.StatusServiceUnavailable},
		{recommendation.StatePartiallyReady, http.StatusOK},
		{recommendation.StateReady, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := New(logger.Nop(), staticEngine{tt.state}, nil, "cropadvisor", "test")
			rec := httptest.NewRecorder()
			h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.state, decode(t, rec).Model.State)
		})
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	deps := map[string]Pinger{
		"postgres": pingFunc(func(ctx context.Context) error { return nil }),
		"redis":    pingFunc(func(ctx context.Context) error { return errors.ErrUnavailable }),
	}
	h := New(logger.Nop(), staticEngine{recommendation.StateReady}, deps, "cropadvisor", "test")

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "healthy", status.Checks["postgres"].Status)
	assert.Equal(t, "unhealthy", status.Checks["redis"].Status)
	assert.Equal(t, "healthy", status.Checks["model"].Status)
}

func TestHandleHealth_PartialModel(t *testing.T) {
	h := New(logger.Nop(), staticEngine{recommendation.StatePartiallyReady}, nil, "cropadvisor", "test")

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", decode(t, rec).Status)
}

func TestHandleHealth_Unhealthy(t *testing.T) {
	h := New(logger.Nop(), staticEngine{recommendation.StateFailed}, nil, "cropadvisor", "test")

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decode(t, rec).Status)
}

func TestHandleLiveness(t *testing.T) {
	h := New(logger.Nop(), staticEngine{recommendation.StateFailed}, nil, "cropadvisor", "test")

	rec := httptest.NewRecorder()
	h.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
