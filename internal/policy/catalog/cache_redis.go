package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

const (
	activeTemplatesKey = "catalog:templates:active"
)

// RedisCache is a read-through cache in front of a catalog Store. Only the
// hot path (ListActive, hit on every evaluation) is cached; admin reads go
// straight through. Writes invalidate the cached set.
type RedisCache struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache decorates a store with a redis cache.
func NewRedisCache(next Store, client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{next: next, client: client, ttl: ttl}
}

func (c *RedisCache) ListActive(ctx context.Context, at time.Time) ([]*policy.RequirementTemplate, error) {
	// The cached set ignores `at`: it is only valid for "now" lookups, so the
	// key carries the current hour to bound staleness across window edges.
	key := fmt.Sprintf("%s:%s", activeTemplatesKey, at.UTC().Format("2006010215"))

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		templates, err := decodeTemplates(raw)
		if err == nil {
			return templates, nil
		}
		// Fall through on decode failure; the entry is overwritten below.
	} else if !errors.Is(err, redis.Nil) {
		// Redis being down must not take evaluation down with it.
		return c.next.ListActive(ctx, at)
	}

	templates, err := c.next.ListActive(ctx, at)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(templates); err == nil {
		c.client.Set(ctx, key, encoded, c.ttl)
	}
	return templates, nil
}

func decodeTemplates(raw []byte) ([]*policy.RequirementTemplate, error) {
	var templates []*policy.RequirementTemplate
	if err := json.Unmarshal(raw, &templates); err != nil {
		return nil, err
	}
	// Expr does not survive JSON round-trips; reparse from the raw text.
	for _, t := range templates {
		expr, err := policy.ParseExpr(t.ApplicabilityExpr)
		if err != nil {
			return nil, err
		}
		t.Expr = expr
	}
	return templates, nil
}

func (c *RedisCache) invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, activeTemplatesKey+":*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
}

func (c *RedisCache) ListRegimes(ctx context.Context) ([]*policy.Regime, error) {
	return c.next.ListRegimes(ctx)
}

func (c *RedisCache) GetRegime(ctx context.Context, id uuid.UUID) (*policy.Regime, error) {
	return c.next.GetRegime(ctx, id)
}

func (c *RedisCache) PutRegime(ctx context.Context, regime *policy.Regime) error {
	return c.next.PutRegime(ctx, regime)
}

func (c *RedisCache) GetTemplate(ctx context.Context, id uuid.UUID) (*policy.RequirementTemplate, error) {
	return c.next.GetTemplate(ctx, id)
}

func (c *RedisCache) PutTemplate(ctx context.Context, template *policy.RequirementTemplate) error {
	if err := c.next.PutTemplate(ctx, template); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}
