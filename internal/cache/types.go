package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")
)

// Stats holds cache performance metrics
type Stats struct {
	// Configuration
	Capacity int64 // Maximum capacity in bytes

	// Current state
	Size      int64 // Current size on disk in bytes
	ItemCount int64 // Number of items in cache

	// Performance metrics
	Hits      int64   // Number of cache hits
	Misses    int64   // Number of cache misses
	Evictions int64   // Number of evictions
	HitRate   float64 // Calculated hit rate (hits / (hits + misses))

	// Timing
	LastAccess time.Time // Last access time
	LastEvict  time.Time // Last eviction time
}
