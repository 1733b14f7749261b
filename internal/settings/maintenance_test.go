package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/redisx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	values map[string]string
	reads  int
	err    error
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.reads++
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *memStore) Put(_ context.Context, key, value, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.values[key] = value
	return nil
}

type memCache struct {
	data map[string]string
	ttl  time.Duration
}

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.data[key] = value
	c.ttl = ttl
	return nil
}

func (c *memCache) Del(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func newTestMaintenance(values map[string]string) (*Maintenance, *memStore, *memCache) {
	store := &memStore{values: values}
	cache := &memCache{data: map[string]string{}}
	return NewMaintenance(store, cache, 5*time.Minute, zap.NewNop().Sugar()), store, cache
}

func TestMaintenance_ReadsThroughCache(t *testing.T) {
	m, store, cache := newTestMaintenance(map[string]string{KeyMaintenanceMode: "true"})
	ctx := context.Background()

	assert.True(t, m.Enabled(ctx))
	assert.True(t, m.Enabled(ctx))
	assert.Equal(t, 1, store.reads)
	assert.Equal(t, "true", cache.data[redisx.KeyMaintenanceMode])
	assert.Equal(t, 5*time.Minute, cache.ttl)
}

func TestMaintenance_SetEnabledInvalidates(t *testing.T) {
	m, _, cache := newTestMaintenance(map[string]string{KeyMaintenanceMode: "false"})
	ctx := context.Background()

	require.False(t, m.Enabled(ctx))
	require.NoError(t, m.SetEnabled(ctx, true))
	assert.NotContains(t, cache.data, redisx.KeyMaintenanceMode)
	assert.True(t, m.Enabled(ctx))
}

func TestMaintenance_FailsOpen(t *testing.T) {
	m, store, _ := newTestMaintenance(map[string]string{})
	store.err = errors.New("db down")
	assert.False(t, m.Enabled(context.Background()))

	m, _, _ = newTestMaintenance(map[string]string{})
	assert.False(t, m.Enabled(context.Background()))
}
