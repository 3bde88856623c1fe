package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mirroredkube/tokenops-sub001/internal/policy"
)

// TrustlineReader reports whether the holder's trustline (or allowlist entry,
// on EVM/Hedera) toward the issuer is authorized on the ledger.
type TrustlineReader interface {
	IsAuthorized(ctx context.Context, ledger policy.Ledger, issuerAddress, holder string) (bool, error)
}

// ReadinessChecker answers "can this holder receive the asset right now".
// Ledger reads are slow, so positive and negative answers are cached in Redis
// for a short TTL. A nil Redis client disables caching.
type ReadinessChecker struct {
	reader TrustlineReader
	cache  *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewReadinessChecker wires the checker. cache may be nil.
func NewReadinessChecker(reader TrustlineReader, cache *goredis.Client, ttl time.Duration, logger *slog.Logger) *ReadinessChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadinessChecker{reader: reader, cache: cache, ttl: ttl, logger: logger}
}

// HolderReady reports whether the holder is authorized to receive assetID's
// token. Cache failures degrade to a direct ledger read, never to an error.
func (c *ReadinessChecker) HolderReady(ctx context.Context, assetID uuid.UUID, ledger policy.Ledger, issuerAddress, holder string) (bool, error) {
	key := fmt.Sprintf("readiness:%s:%s", assetID, holder)
	if c.cache != nil {
		if v, err := c.cache.Get(ctx, key).Result(); err == nil {
			return v == "1", nil
		} else if err != goredis.Nil {
			c.logger.Warn("readiness cache read failed", "error", err)
		}
	}

	ok, err := c.reader.IsAuthorized(ctx, ledger, issuerAddress, holder)
	if err != nil {
		return false, fmt.Errorf("read trustline authorization: %w", err)
	}

	if c.cache != nil {
		v := "0"
		if ok {
			v = "1"
		}
		if err := c.cache.Set(ctx, key, v, c.ttl).Err(); err != nil {
			c.logger.Warn("readiness cache write failed", "error", err)
		}
	}
	return ok, nil
}

// Invalidate drops the cached answer for one holder, used after an
// authorization transaction lands.
func (c *ReadinessChecker) Invalidate(ctx context.Context, assetID uuid.UUID, holder string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Del(ctx, fmt.Sprintf("readiness:%s:%s", assetID, holder)).Err(); err != nil {
		c.logger.Warn("readiness cache invalidate failed", "error", err)
	}
}

// StaticTrustlineReader is an in-memory TrustlineReader for development. All
// holders are authorized unless explicitly denied.
type StaticTrustlineReader struct {
	mu     sync.RWMutex
	denied map[string]bool // holder address
}

// NewStaticTrustlineReader creates a reader that authorizes every holder.
func NewStaticTrustlineReader() *StaticTrustlineReader {
	return &StaticTrustlineReader{denied: make(map[string]bool)}
}

// Deny marks a holder as unauthorized.
func (r *StaticTrustlineReader) Deny(holder string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denied[holder] = true
}

func (r *StaticTrustlineReader) IsAuthorized(_ context.Context, _ policy.Ledger, _ string, holder string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.denied[holder], nil
}
