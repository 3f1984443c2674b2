// Package cache provides caching decorators for classification collaborators.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ecosort_backend/internal/feature/classification/domain/entity"
	"ecosort_backend/internal/feature/classification/usecase"
)

const (
	defaultTTL       = time.Hour
	defaultNamespace = "classify"
)

// CachingClassifier decorates a Classifier with Redis caching keyed by image content.
// Identical images are answered from the cache without calling the model again.
type CachingClassifier struct {
	inner     usecase.Classifier
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.Classifier = (*CachingClassifier)(nil)

// NewCachingClassifier decorates a Classifier with Redis caching.
// If ttl is 0, it defaults to 1 hour. If namespace is empty, it uses "classify".
func NewCachingClassifier(rdb *redis.Client, ttl time.Duration, inner usecase.Classifier, namespace string) *CachingClassifier {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &CachingClassifier{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Classify returns cached detections for the image when present, otherwise calls the inner classifier.
// Failures are never cached.
func (c *CachingClassifier) Classify(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.Classify(ctx, imageData)
	}

	key := c.cacheKey(imageData)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Detection
		if err := json.Unmarshal(b, &out); err == nil {
			slog.Debug("classification cache hit", "key", key)
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the model
	out, err := c.inner.Classify(ctx, imageData)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// Purge deletes every cached classification in the namespace.
func (c *CachingClassifier) Purge(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.deleteByPattern(ctx, c.namespace+":*")
}

// cacheKey generates a cache key from the image content.
func (c *CachingClassifier) cacheKey(imageData []byte) string {
	sum := sha256.Sum256(imageData)
	return c.namespace + ":" + hex.EncodeToString(sum[:])
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingClassifier) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}
