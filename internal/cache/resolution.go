// Package cache holds the Redis-backed cache of provider account
// resolutions. Best-effort only: a cache miss or Redis failure just means
// the saga calls the provider.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/endee416/vendorpay/internal/domain"
)

type ResolutionCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewResolutionCache(c *redis.Client, ttl time.Duration) *ResolutionCache {
	return &ResolutionCache{Client: c, TTL: ttl}
}

func key(accountNumber, bankCode string) string {
	return "resolve:" + bankCode + ":" + accountNumber
}

func (r *ResolutionCache) Get(ctx context.Context, accountNumber, bankCode string) (domain.ResolvedIdentity, bool, error) {
	raw, err := r.Client.Get(ctx, key(accountNumber, bankCode)).Bytes()
	if err == redis.Nil {
		return domain.ResolvedIdentity{}, false, nil
	}
	if err != nil {
		return domain.ResolvedIdentity{}, false, err
	}
	var id domain.ResolvedIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.ResolvedIdentity{}, false, err
	}
	return id, true, nil
}

func (r *ResolutionCache) Set(ctx context.Context, accountNumber, bankCode string, id domain.ResolvedIdentity) error {
	b, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(accountNumber, bankCode), b, r.TTL).Err()
}
