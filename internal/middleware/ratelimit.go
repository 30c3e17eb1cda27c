package middleware

import (
    "context"
    "fmt"
    "log/slog"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/backend-scaffold/internal/config"
)

// Decision is the outcome of taking one token from a bucket.
type Decision struct {
    Allowed    bool
    Remaining  int64
    RetryAfter time.Duration
}

// Limiter takes one token from the bucket named key.
type Limiter interface {
    Take(ctx context.Context, key string) (Decision, error)
}

// bucketScript keeps {tokens, ts} in a hash.  Whole refill intervals since
// ts are credited, then one token is taken.  Replies {allowed, left, wait_ms}.
var bucketScript = redis.NewScript(`
local cap, step, every, ttl, now = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local h = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local left, ts = tonumber(h[1]), tonumber(h[2])
if left == nil or ts == nil then
  left, ts = cap, now
end
local n = math.floor(math.max(0, now - ts) / every)
if n > 0 then
  left = math.min(cap, left + n * step)
  ts = ts + n * every
end
local ok, wait = 0, 0
if left > 0 then
  ok, left = 1, left - 1
else
  wait = math.max(0, every - (now - ts))
end
redis.call('HSET', KEYS[1], 'tokens', left, 'ts', ts)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, left, wait}
`)

// RedisBucket is a token bucket shared by every instance using the same
// Redis database.
type RedisBucket struct {
    rdb *redis.Client
    cfg config.RateLimitConfig
    now func() time.Time
}

func NewRedisBucket(rdb *redis.Client, cfg config.RateLimitConfig) *RedisBucket {
    return &RedisBucket{rdb: rdb, cfg: cfg, now: time.Now}
}

func (b *RedisBucket) Take(ctx context.Context, key string) (Decision, error) {
    res, err := bucketScript.Run(ctx, b.rdb, []string{key},
        b.cfg.Capacity,
        b.cfg.RefillTokens,
        b.cfg.RefillInterval.Milliseconds(),
        int64(b.cfg.TTL/time.Second),
        b.now().UnixMilli(),
    ).Int64Slice()
    if err != nil {
        return Decision{}, err
    }
    if len(res) != 3 {
        return Decision{}, fmt.Errorf("ratelimit: unexpected reply %v", res)
    }
    return Decision{Allowed: res[0] == 1, Remaining: res[1], RetryAfter: time.Duration(res[2]) * time.Millisecond}, nil
}

// NewTokenBucket is the Redis-backed RateLimit.  A nil client gives a
// pass-through middleware.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
    if rdb == nil {
        return RateLimit(cfg, nil, log)
    }
    return RateLimit(cfg, NewRedisBucket(rdb, cfg), log)
}

// RateLimit takes one token per request from the bucket selected by
// cfg.KeyStrategy.  Limiter errors let the request through.
func RateLimit(cfg config.RateLimitConfig, lim Limiter, log *slog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || lim == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    limit := strconv.Itoa(cfg.Capacity)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ctx := c.Request().Context()
            key := buildRateKey(cfg, c)
            d, err := lim.Take(ctx, key)
            if err != nil {
                if cfg.Debug {
                    log.WarnContext(ctx, "ratelimit: limiter error", "key", key, "err", err)
                }
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
            if d.Allowed {
                return next(c)
            }

            // round up so clients never retry early
            secs := (d.RetryAfter + time.Second - 1) / time.Second
            h.Set("Retry-After", strconv.FormatInt(int64(secs), 10))
            if cfg.Debug {
                log.InfoContext(ctx, "ratelimit: blocked", "key", key, "retry_after", d.RetryAfter)
            }
            return echo.NewHTTPError(http.StatusTooManyRequests, cfg.Message)
        }
    }
}

// buildRateKey joins the prefix with the parts named by the strategy, e.g.
// "ip_route" gives "rl:ip:<ip>:route:<method path>".  Unknown or empty
// strategies key on ip, user and route together.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    strategy := strings.ToLower(strings.TrimSpace(cfg.KeyStrategy))
    if !knownStrategy(strategy) {
        strategy = "ip_user_route"
    }
    for _, p := range strings.Split(strategy, "_") {
        switch p {
        case "ip":
            ip := c.RealIP()
            if ip == "" {
                ip = "unknown"
            }
            parts = append(parts, "ip", ip)
        case "user":
            parts = append(parts, "user", userID(c))
        case "route":
            parts = append(parts, "route", c.Request().Method+" "+c.Path())
        }
    }
    return strings.Join(parts, ":")
}

func knownStrategy(s string) bool {
    switch s {
    case "ip", "user", "route", "ip_route", "user_route", "ip_user_route":
        return true
    }
    return false
}
