package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/config"
)

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	store := &mapStore{data: map[string][]byte{}}
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, store, ProductKey(5), payload{ID: 5, Name: "Soup"}, time.Minute))

	got, err := GetJSON[payload](ctx, store, ProductKey(5))
	require.NoError(t, err)
	assert.Equal(t, "Soup", got.Name)

	_, err = GetJSON[payload](ctx, store, ProductKey(6))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNoopStoreAlwaysMisses(t *testing.T) {
	store := NewNoop()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, OrderKey(1), []byte("x"), time.Minute))
	_, err := store.Get(ctx, OrderKey(1))
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, "orders:1", OrderKey(1))
}

func TestNewStoreSelectsDriver(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	store, err := NewStore(lc, config.Config{Cache: config.Cache{Driver: "noop"}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, NewNoop(), store)

	redis, err := NewStore(lc, config.Config{Cache: config.Cache{Driver: "redis", Redis: config.Redis{Addr: "127.0.0.1:1", KeyPrefix: "t:"}}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "t:", redis.(*redisStore).prefix)

	_, err = NewStore(lc, config.Config{Cache: config.Cache{Driver: "memcached"}}, zap.NewNop())
	assert.Error(t, err)
}

func TestRedisStoreIgnoresEmptyKeys(t *testing.T) {
	store := newRedisStoreWithClient(nil, "t:", time.Minute)
	ctx := context.Background()

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Error(t, store.Set(ctx, "", []byte("x"), 0))
	assert.NoError(t, store.Delete(ctx, "", ""))
}
