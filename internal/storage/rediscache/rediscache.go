// Package rediscache implements the latest-snapshot and bounded
// history caches on Redis. Cache keys are versioned; reads silently
// migrate entries left behind by the previous key format, so a
// deployment rolling forward keeps its warm cache.
package rediscache

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"sharkspread/internal/domain"
)

// Key prefixes. v1 keys predate the versioned scheme and are consumed
// on first read, then deleted.
const (
	keyPrefixV2 = "sharkspread:v2:"
	keyPrefixV1 = "sharkspread:"
)

// NewClient creates a Redis client for dependency injection.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func latestKeyV2(symbol string) string {
	return keyPrefixV2 + "latest:" + symbol
}

func latestKeyV1(symbol string) string {
	return keyPrefixV1 + "latest:" + symbol
}

func historyKeyV2(symbol string, tf domain.Timeframe) string {
	return fmt.Sprintf("%shistory:%s:%s", keyPrefixV2, symbol, tf)
}

func historyKeyV1(symbol string, tf domain.Timeframe) string {
	return fmt.Sprintf("%shistory:%s:%s", keyPrefixV1, symbol, tf)
}
