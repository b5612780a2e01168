// Package redis implements the limiter contract on a shared Redis, so several
// gateway instances can enforce one quota. Each key is a sorted set of request
// instants scored by unix milliseconds; expiry replaces the in-process sweep.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"rategate/internal/ratelimit"
)

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string // scanned by the Inspector ops, default "ratelimit:"
}

type Limiter struct {
	client *redis.Client
	prefix string
}

var (
	_ ratelimit.Limiter   = (*Limiter)(nil)
	_ ratelimit.Inspector = (*Limiter)(nil)
)

func New(cfg Config) (*Limiter, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Limiter{client: client, prefix: cfg.KeyPrefix}, nil
}

func (l *Limiter) Close() error {
	return l.client.Close()
}

func (l *Limiter) Check(ctx context.Context, key string, cfg ratelimit.Config, now time.Time) (ratelimit.Result, error) {
	if !cfg.Valid() {
		return ratelimit.Result{Allowed: true, Limit: cfg.MaxRequests, ResetIn: 1}, nil
	}

	windowStart := now.Add(-cfg.Window)

	slide := l.client.TxPipeline()
	slide.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixMilli(), 10))
	card := slide.ZCard(ctx, key)
	oldest := slide.ZRangeWithScores(ctx, key, 0, 0)
	if _, err := slide.Exec(ctx); err != nil {
		return ratelimit.Result{}, fmt.Errorf("redis slide %q: %w", key, err)
	}

	current := int(card.Val())
	oldestAt := now
	if zs := oldest.Val(); len(zs) > 0 {
		oldestAt = time.UnixMilli(int64(zs[0].Score))
	}

	if current >= cfg.MaxRequests {
		return ratelimit.Result{
			Allowed:   false,
			Limit:     cfg.MaxRequests,
			Remaining: 0,
			Current:   current,
			ResetIn:   ratelimit.ResetIn(oldestAt, cfg.Window, now),
		}, nil
	}

	// Two instances racing between the count above and the append below can
	// overshoot the limit by one. Accepted: the quota is best effort across
	// processes, exact within one.
	admit := l.client.TxPipeline()
	admit.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	admit.PExpire(ctx, key, cfg.Window)
	if _, err := admit.Exec(ctx); err != nil {
		return ratelimit.Result{}, fmt.Errorf("redis admit %q: %w", key, err)
	}

	current++
	return ratelimit.Result{
		Allowed:   true,
		Limit:     cfg.MaxRequests,
		Remaining: cfg.MaxRequests - current,
		Current:   current,
		ResetIn:   ratelimit.ResetIn(oldestAt, cfg.Window, now),
	}, nil
}

func (l *Limiter) Size(ctx context.Context) (int, error) {
	keys, err := l.scan(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (l *Limiter) Keys(ctx context.Context) ([]ratelimit.KeyInfo, error) {
	keys, err := l.scan(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ratelimit.KeyInfo, 0, len(keys))
	for _, k := range keys {
		count, err := l.client.ZCard(ctx, k).Result()
		if err != nil {
			return nil, fmt.Errorf("redis zcard %q: %w", k, err)
		}
		info := ratelimit.KeyInfo{Key: k, Current: int(count)}
		if zs, err := l.client.ZRangeWithScores(ctx, k, 0, 0).Result(); err == nil && len(zs) > 0 {
			info.FirstSeen = time.UnixMilli(int64(zs[0].Score))
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

func (l *Limiter) ResetAll(ctx context.Context) error {
	keys, err := l.scan(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return l.client.Del(ctx, keys...).Err()
}

func (l *Limiter) scan(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := l.client.Scan(ctx, cursor, l.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			sort.Strings(keys)
			return keys, nil
		}
	}
}
