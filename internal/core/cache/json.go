package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetOrLoadJSON 缓存里存 JSON。
// 旧版本写入的值解不开时（结构体字段改过）删掉重新回源一次
func GetOrLoadJSON[T any](c *Cache, ctx context.Context, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return load(ctx)
	}
	var zero T
	for attempt := 0; ; attempt++ {
		var fresh *T
		b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
			v, err := load(ctx)
			if err != nil {
				return nil, err
			}
			fresh = &v
			return json.Marshal(v)
		})
		if err != nil {
			return zero, err
		}
		if fresh != nil {
			return *fresh, nil
		}
		var out T
		uerr := json.Unmarshal(b, &out)
		if uerr == nil {
			return out, nil
		}
		if attempt > 0 {
			return zero, uerr
		}
		if err := c.RDB.Del(ctx, key).Err(); err != nil {
			return zero, err
		}
	}
}
