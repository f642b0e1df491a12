package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// RedisCache 是 Redis 实现的 Cache。生产环境常用，画像与推荐列表
// 跨实例共享，支持持久化、集群、哨兵等。
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

// NewRedisCacheWithClient 复用外部已建好的客户端（连接池共享场景）。
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Name() string { return "redis" }

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, core.ErrCacheMiss
	}
	return val, err
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	var expiration time.Duration
	if len(ttl) > 0 && ttl[0] > 0 {
		expiration = time.Duration(ttl[0]) * time.Second
	}
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// DeletePattern 用 SCAN 游标遍历匹配 key 后批量删除。
// 避免 KEYS 命令阻塞 Redis；模式语义即 Redis glob。
func (r *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

var _ core.Cache = (*RedisCache)(nil)
