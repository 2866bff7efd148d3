package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kycflow/pkg/domain"
	"kycflow/pkg/logger"
)

// ResultCache lets repeat submissions of identical media skip a round trip to
// the analysis engine. Cache failures are soft: a miss is always safe.
type ResultCache interface {
	Get(ctx context.Context, doc, selfie string) (*domain.VerificationResult, bool)
	Set(ctx context.Context, doc, selfie string, result *domain.VerificationResult)
}

type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisResultCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisResultCache {
	return &RedisResultCache{client: client, ttl: ttl, logger: log}
}

func (c *RedisResultCache) Get(ctx context.Context, doc, selfie string) (*domain.VerificationResult, bool) {
	data, err := c.client.Get(ctx, cacheKey(doc, selfie)).Result()
	if err != nil {
		return nil, false
	}

	var result domain.VerificationResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (c *RedisResultCache) Set(ctx context.Context, doc, selfie string, result *domain.VerificationResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(doc, selfie), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache verification result", logger.Fields{
			"error": err.Error(),
		})
	}
}

// cacheKey digests both payloads so the key stays small and carries no PII.
func cacheKey(doc, selfie string) string {
	h := sha256.New()
	h.Write([]byte(doc))
	h.Write([]byte{0})
	h.Write([]byte(selfie))
	return "kyc:verify:" + hex.EncodeToString(h.Sum(nil))
}
