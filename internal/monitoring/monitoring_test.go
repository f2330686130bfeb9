package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func okCheck(name string) Check {
	return Check{Name: name, Ping: func(context.Context) error { return nil }}
}

func failingCheck(name string) Check {
	return Check{Name: name, Ping: func(context.Context) error { return errors.New("down") }}
}

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(okCheck("db"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", rr.Body.String())
}

func TestHealthHandler_NotReady(t *testing.T) {
	h := HealthHandler(okCheck("db"), failingCheck("redis"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "redis not ready")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGRPCHealth_Refresh(t *testing.T) {
	ctx := context.Background()

	healthy := NewGRPCHealth(okCheck("db"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, healthy.Refresh(ctx))
	resp, err := healthy.server.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	broken := NewGRPCHealth(failingCheck("db"))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, broken.Refresh(ctx))
	resp, err = broken.server.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
