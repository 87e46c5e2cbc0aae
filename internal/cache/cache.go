package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not present
var ErrCacheMiss = errors.New("cache miss")

// Cache is the read-side cache in front of the store. It holds only
// derived, re-creatable data (latest run summary, food item lookups);
// nothing authoritative ever lives here.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// LatestRunKey is where the most recent integrity-run summary lives
const LatestRunKey = "integrity:latest-run"

// FoodItemKey builds the cache key for one nutrient reference row
func FoodItemKey(id string) string {
	return "food-item:" + id
}
