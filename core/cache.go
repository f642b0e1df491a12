package core

import "context"

// Cache 是键值缓存的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 兴趣画像缓存（1 小时 TTL）
//   - popularity 结果缓存（30 分钟 TTL）
//   - 推荐列表缓存（30 分钟 - 24 小时 TTL）
//
// 实现：
//   - store.MemoryCache 实现此接口
//   - store.RedisCache 实现此接口
//
// 缓存失败一律按 miss 处理，从不致命（见 engine 包的降级链）。
type Cache interface {
	// Name 返回缓存后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值，不存在返回 ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，ttl 单位为秒（可选，0 表示不过期）
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// DeletePattern 按 glob 模式批量删除（如 "rec:user:42:*"）
	DeletePattern(ctx context.Context, pattern string) error

	// Close 关闭连接/释放资源
	Close() error
}

// ErrCacheMiss 表示 key 不存在（或已过期）。
var ErrCacheMiss = NewDomainError(ModuleCache, ErrorCodeNotFound, "cache: key not found")

// IsCacheMiss 检查错误是否为缓存未命中。
func IsCacheMiss(err error) bool {
	if err == nil {
		return false
	}
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleCache {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}
