package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/pkg/errors"
)

const keyPrefix = "analysis:"

// Compile-time check
var _ suitability.ResultCache = (*AnalysisCache)(nil)

// AnalysisCache implements suitability.ResultCache using Redis
type AnalysisCache struct {
	client *redis.Client
}

// NewAnalysisCache creates a new analysis cache
func NewAnalysisCache(client *redis.Client) *AnalysisCache {
	return &AnalysisCache{client: client}
}

// Get returns the cached result for key. A miss is (nil, false, nil).
func (c *AnalysisCache) Get(ctx context.Context, key string) (*suitability.Result, bool, error) {
	data, err := c.client.Get(ctx, c.getKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get analysis from redis")
	}

	var result suitability.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, errors.Wrap(err, "failed to unmarshal cached analysis")
	}

	return &result, true, nil
}

// Set stores result under key with ttl
func (c *AnalysisCache) Set(ctx context.Context, key string, result *suitability.Result, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to marshal analysis")
	}

	if err := c.client.Set(ctx, c.getKey(key), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to save analysis to redis")
	}

	return nil
}

// getKey hashes the caller key so feature fingerprints of any length map to a fixed-size key
func (c *AnalysisCache) getKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return keyPrefix + hex.EncodeToString(sum[:])
}
