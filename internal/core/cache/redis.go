package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// 列表缓存的键前缀；写操作按前缀失效
const (
	PrefixTrainings = "trainings:"
	PrefixTeams     = "teams:"
	PrefixArticles  = "articles:"
	PrefixUsers     = "users:"
)

// Cache nil 时所有操作直接回源
type Cache struct {
	RDB *redis.Client
	TTL time.Duration
	sf  singleflight.Group
}

func New(addr, pass string, db int, ttl time.Duration) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), ttl)
}

func NewWithClient(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{RDB: rdb, TTL: ttl}
}

func (c *Cache) Enabled() bool { return c != nil && c.RDB != nil }

func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if !c.Enabled() {
		return load(ctx)
	}
	if ttl <= 0 {
		ttl = c.TTL
	}
	// 先读缓存
	if b, err := c.RDB.Get(ctx, key).Bytes(); err == nil {
		return b, nil
	}
	// single flight 合并回源
	v, err, _ := c.sf.Do(key, func() (any, error) {
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		_ = c.RDB.Set(ctx, key, b, ttl).Err()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// InvalidatePrefix SCAN + DEL，不用 KEYS 以免阻塞 redis
func (c *Cache) InvalidatePrefix(ctx context.Context, prefixes ...string) error {
	if !c.Enabled() {
		return nil
	}
	for _, p := range prefixes {
		iter := c.RDB.Scan(ctx, 0, p+"*", 200).Iterator()
		var batch []string
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) >= 200 {
				if err := c.RDB.Del(ctx, batch...).Err(); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := c.RDB.Del(ctx, batch...).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.RDB.Close()
}
