package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheStore is the subset of the redis client the catalog cache uses.
type CacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

const (
	serviceKeyPrefix = "catalog:service:"
	serviceListKey   = "catalog:services"
)

// cachedServiceRepository reads through redis. A redis failure falls back to
// the database and is only logged.
type cachedServiceRepository struct {
	next  ServiceRepository
	store CacheStore
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedServiceRepository(next ServiceRepository, store CacheStore, ttl time.Duration, log *zap.Logger) ServiceRepository {
	return &cachedServiceRepository{
		next:  next,
		store: store,
		ttl:   ttl,
		log:   log.With(zap.String("repository", "service_cache")),
	}
}

func (r *cachedServiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	key := serviceKeyPrefix + id.String()

	var cached entity.Service
	if r.get(ctx, key, &cached) {
		return &cached, nil
	}

	service, err := r.next.FindByID(ctx, id)
	if err != nil || service == nil {
		return service, err
	}

	r.set(ctx, key, service)
	return service, nil
}

func (r *cachedServiceRepository) FindAll(ctx context.Context) ([]*entity.Service, error) {
	var cached []*entity.Service
	if r.get(ctx, serviceListKey, &cached) {
		return cached, nil
	}

	services, err := r.next.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	r.set(ctx, serviceListKey, services)
	return services, nil
}

func (r *cachedServiceRepository) get(ctx context.Context, key string, dest any) bool {
	raw, err := r.store.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.IncCacheLookup("miss")
		return false
	}
	if err != nil {
		metrics.IncCacheLookup("error")
		r.log.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		metrics.IncCacheLookup("error")
		r.log.Warn("Catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}

	metrics.IncCacheLookup("hit")
	return true
}

func (r *cachedServiceRepository) set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.log.Warn("Catalog cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.store.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.log.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
