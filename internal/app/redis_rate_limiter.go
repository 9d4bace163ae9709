/**
 * @description
 * Redis-backed rate limiting for the guard scan endpoint. Every gate scan
 * hits Redis with a fixed one-minute window keyed by the scanning guard, so
 * the limit holds across service instances. When Redis is not configured
 * the limiter is nil and every scan is allowed.
 */

package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanRateWindow is the fixed-window length for guard scans.
const scanRateWindow = time.Minute

var scanRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// ScanRateDecision is the outcome of one scan attempt against the limiter.
// RetryAfterSeconds is only meaningful when the scan was denied.
type ScanRateDecision struct {
	Allowed           bool
	RetryAfterSeconds int
}

// RedisScanRateLimiter throttles guard scans per guard per minute. A nil
// limiter, a nil client, or a non-positive limit allows everything.
type RedisScanRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisScanRateLimiter(client redis.UniversalClient, prefix string) *RedisScanRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "arcos:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisScanRateLimiter{
		client: client,
		prefix: trimmedPrefix,
	}
}

// AllowScan counts one scan by the given guard against the per-minute limit
// and says whether it may proceed.
func (r *RedisScanRateLimiter) AllowScan(ctx context.Context, guardID string, limit int) (ScanRateDecision, error) {
	allowed := ScanRateDecision{Allowed: true}

	guardID = strings.TrimSpace(guardID)
	if r == nil || r.client == nil || limit <= 0 || guardID == "" {
		return allowed, nil
	}

	key := fmt.Sprintf("%s:visitor_scan:%s", r.prefix, guardID)
	rawResult, err := scanRateLimitScript.Run(ctx, r.client, []string{key}, scanRateWindow.Milliseconds()).Result()
	if err != nil {
		return allowed, err
	}

	return scanRateDecision(rawResult, limit)
}

// scanRateDecision interprets the limiter script's {count, ttl_ms} reply.
func scanRateDecision(rawResult interface{}, limit int) (ScanRateDecision, error) {
	allowed := ScanRateDecision{Allowed: true}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return allowed, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}

	count, ok := values[0].(int64)
	if !ok {
		return allowed, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	if count <= int64(limit) {
		return allowed, nil
	}

	ttlMs, ok := values[1].(int64)
	if !ok {
		return allowed, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = scanRateWindow.Milliseconds()
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return ScanRateDecision{Allowed: false, RetryAfterSeconds: retryAfter}, nil
}
