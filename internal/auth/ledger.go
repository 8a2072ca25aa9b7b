package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetLedger records which reset tokens have already been used.
// Without one, a reset token can be replayed until it expires.
type ResetLedger interface {
	// Claim marks tokenID as used until expiresAt. It returns false if it was already claimed.
	Claim(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
	// Release undoes a claim whose reset did not complete.
	Release(ctx context.Context, tokenID string) error
}

// RedisLedger keeps claimed token ids as expiring Redis keys.
type RedisLedger struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisLedger returns a ledger storing keys under prefix.
func NewRedisLedger(rdb redis.UniversalClient, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "authgate:reset:"
	}
	return &RedisLedger{rdb: rdb, prefix: prefix, now: time.Now}
}

func (l *RedisLedger) Claim(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		// An expired token cannot be verified anyway; keep the key briefly so the claim is still atomic.
		ttl = time.Second
	}
	return l.rdb.SetNX(ctx, l.prefix+tokenID, 1, ttl).Result()
}

func (l *RedisLedger) Release(ctx context.Context, tokenID string) error {
	return l.rdb.Del(ctx, l.prefix+tokenID).Err()
}
