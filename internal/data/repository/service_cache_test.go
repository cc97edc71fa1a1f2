package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cleaning-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

type countingServiceRepo struct {
	services map[uuid.UUID]*entity.Service
	calls    int
}

func (c *countingServiceRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Service, error) {
	c.calls++
	return c.services[id], nil
}

func (c *countingServiceRepo) FindAll(context.Context) ([]*entity.Service, error) {
	c.calls++
	var out []*entity.Service
	for _, s := range c.services {
		out = append(out, s)
	}
	return out, nil
}

func TestCachedServiceRepository_ReadThrough(t *testing.T) {
	id := uuid.New()
	backing := &countingServiceRepo{services: map[uuid.UUID]*entity.Service{
		id: {Base: entity.Base{ID: id}, Name: "Deep clean", BasePrice: 150, EstimatedDuration: 2},
	}}
	repo := NewCachedServiceRepository(backing, newMemoryStore(), time.Minute, zap.NewNop())
	ctx := context.Background()

	first, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, 1, backing.calls)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, 2.0, second.EstimatedDuration)

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.FindAll(ctx)
	require.NoError(t, err)
	list, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 3, backing.calls)
}

func TestCachedServiceRepository_StoreFailureFallsBack(t *testing.T) {
	id := uuid.New()
	backing := &countingServiceRepo{services: map[uuid.UUID]*entity.Service{
		id: {Base: entity.Base{ID: id}, Name: "Windows", EstimatedDuration: 1},
	}}
	store := newMemoryStore()
	store.failGet = true
	repo := NewCachedServiceRepository(backing, store, time.Minute, zap.NewNop())

	for i := 0; i < 2; i++ {
		service, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Windows", service.Name)
	}
	assert.Equal(t, 2, backing.calls)
}
