package permission

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how long an evaluated permission set is reused
const DefaultCacheTTL = 5 * time.Minute

const cacheKeyPrefix = "tag-catalog:perm:"

// Cache is the subset of the Redis client the cached oracle needs
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedOracle memoises another oracle's answers in Redis. Keys include the
// user's roles, so a role change is picked up without explicit invalidation.
// Cache failures are logged and fall through to the wrapped oracle.
type CachedOracle struct {
	next   Oracle
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedOracle wraps next with a Redis cache
func NewCachedOracle(next Oracle, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedOracle {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedOracle{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Evaluate implements Oracle
func (o *CachedOracle) Evaluate(ctx context.Context, user *models.User, subject Subject) (models.OperationPermission, error) {
	key := CacheKey(user, subject)

	raw, err := o.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		var perm models.OperationPermission
		if jsonErr := json.Unmarshal([]byte(raw), &perm); jsonErr == nil {
			return perm, nil
		}
		o.logger.Warn("permission_cache_corrupt", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		o.logger.Warn("permission_cache_get_failed", zap.String("key", key), zap.Error(err))
	}

	perm, err := o.next.Evaluate(ctx, user, subject)
	if err != nil {
		return models.OperationPermission{}, err
	}
	encoded, err := json.Marshal(perm)
	if err == nil {
		if setErr := o.cache.Set(ctx, key, encoded, o.ttl).Err(); setErr != nil {
			o.logger.Warn("permission_cache_set_failed", zap.String("key", key), zap.Error(setErr))
		}
	}
	return perm, nil
}

// CacheKey derives the cache key for a user and subject
func CacheKey(user *models.User, subject Subject) string {
	who := "anonymous"
	var roles []string
	if user != nil {
		who = user.ID.String()
		roles = append(roles, user.Roles...)
	}
	sort.Strings(roles)
	return cacheKeyPrefix + who + ":" + strings.Join(roles, ",") + ":" + string(subject.Resource) + ":" + subject.ID.String()
}
