package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/roombooking/internal/server/servertest"
)

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil, "test")
	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthStatusOK, decodeHealth(t, rec).Status)
}

func TestHealthChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		bookings   *servertest.FakeBookings
		notReady   bool
		shutdown   bool
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "all healthy",
			bookings:   &servertest.FakeBookings{},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{
				"ready":         healthStatusOK,
				"shutdown":      healthStatusOK,
				"backend":       healthStatusOK,
				"pending_store": healthStatusOK,
			},
		},
		{
			name:       "backend down",
			bookings:   &servertest.FakeBookings{PingErr: errors.New("refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"backend": healthStatusUnreachable},
		},
		{
			name:       "marked not ready",
			bookings:   &servertest.FakeBookings{},
			notReady:   true,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"ready": healthStatusNotReady},
		},
		{
			name:       "shutting down",
			bookings:   &servertest.FakeBookings{},
			shutdown:   true,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"shutdown": healthStatusShuttingDown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newTestContext(t, tt.bookings)
			h := NewHealthChecker(sc, "test")
			if tt.notReady {
				h.SetReady(false)
			}
			if tt.shutdown {
				require.NoError(t, sc.Shutdown())
			}

			rec := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeHealth(t, rec)
			for k, v := range tt.wantChecks {
				assert.Equal(t, v, resp.Checks[k], k)
			}
		})
	}
}

func TestHealthChecker_Detailed(t *testing.T) {
	sc := newTestContext(t, &servertest.FakeBookings{})
	h := NewHealthChecker(sc, "1.2.3")

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusOK, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
	assert.Equal(t, healthStatusOK, resp.Checks["backend"])

	require.NoError(t, sc.Shutdown())
	rec = httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusShuttingDown, resp.Status)
}

func TestHealthChecker_Endpoints(t *testing.T) {
	h := NewHealthChecker(nil, "test")
	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)

	for _, p := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, rec.Code, p)
	}
}
