package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salonbook/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "salonbook:catalog:"

// Source is the authoritative catalogue the cache reads through to.
type Source interface {
	GetService(ctx context.Context, id string) (*model.Service, error)
	ListStaff(ctx context.Context, branchID string) ([]model.StaffMember, error)
}

// Catalog is an optional Redis read-through cache for services and the staff
// roster. Appointments, breaks and leave are never cached. With no client or a
// non-positive TTL every call goes straight to the source.
type Catalog struct {
	source Source
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewCatalog wraps source. redisClient may be nil.
func NewCatalog(source Source, redisClient *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Catalog {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Catalog{source: source, redis: redisClient, ttl: ttl, logger: logger}
}

// GetService returns a service, from cache when possible.
func (c *Catalog) GetService(ctx context.Context, id string) (*model.Service, error) {
	key := keyPrefix + "service:" + id
	var s model.Service
	if c.readCache(ctx, key, &s) {
		return &s, nil
	}

	svc, err := c.source.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, svc)
	return svc, nil
}

// ListStaff returns active staff of a branch, from cache when possible.
func (c *Catalog) ListStaff(ctx context.Context, branchID string) ([]model.StaffMember, error) {
	key := fmt.Sprintf("%sstaff:%s", keyPrefix, branchID)
	var staff []model.StaffMember
	if c.readCache(ctx, key, &staff) {
		return staff, nil
	}

	staff, err := c.source.ListStaff(ctx, branchID)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, staff)
	return staff, nil
}

// Invalidate drops every cached catalogue entry, e.g. after a roster sync.
func (c *Catalog) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}

	var keys []string
	iter := c.redis.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	c.logger.Debug().Int("keys", len(keys)).Msg("Catalog cache invalidated")
	return nil
}

func (c *Catalog) enabled() bool {
	return c.redis != nil && c.ttl > 0
}

func (c *Catalog) readCache(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Catalog) writeCache(ctx context.Context, key string, val any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}
