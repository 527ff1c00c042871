//go:build integration

package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore(startRedis(t), "test", time.Minute)
	require.NoError(t, s.Ping(ctx))

	_, ok, err := s.Recall(ctx, "checkout", "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	locked, err := s.TryLock(ctx, "checkout", "k1")
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = s.TryLock(ctx, "checkout", "k1")
	require.NoError(t, err)
	assert.False(t, locked, "second request must not get the lock")

	want := StoredResponse{Status: 201, Body: json.RawMessage(`{"success":true}`)}
	require.NoError(t, s.Remember(ctx, "checkout", "k1", want))

	got, ok, err := s.Recall(ctx, "checkout", "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Status, got.Status)
	assert.JSONEq(t, string(want.Body), string(got.Body))

	locked, err = s.TryLock(ctx, "checkout", "k2")
	require.NoError(t, err)
	require.True(t, locked)
	require.NoError(t, s.Release(ctx, "checkout", "k2"))
	locked, err = s.TryLock(ctx, "checkout", "k2")
	require.NoError(t, err)
	assert.True(t, locked, "released key can be claimed again")
}
