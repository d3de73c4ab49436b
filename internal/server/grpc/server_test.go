package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Rockthor1106/restaurant-management-api/internal/database/databasetest"
)

func TestHealthFollowsDatabase(t *testing.T) {
	conns := databasetest.New(t)
	hc := NewHealth(NewServer(zap.NewNop()), conns, zap.NewNop())
	ctx := context.Background()

	resp, err := hc.server.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.Check(ctx))
	resp, err = hc.server.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	require.NoError(t, conns.Writer.Close())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, hc.Check(ctx))
}
