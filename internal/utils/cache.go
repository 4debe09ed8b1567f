package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装实际的数据，增加过期时间
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// TTLCache 带过期时间的 LRU 缓存
type TTLCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	ttl     time.Duration
	now     func() time.Time
}

// NewTTLCache 初始化，size 是最大缓存条数（如 1024），ttl 是数据有效期（如 30 秒）
func NewTTLCache[T any](size int, ttl time.Duration) *TTLCache[T] {
	if size <= 0 {
		size = 1
	}
	// lru.New 是线程安全的，size > 0 时不会返回错误
	c, _ := lru.New[string, CacheItem[T]](size)
	return &TTLCache[T]{
		storage: c,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Set 新增或覆盖（LRU 中 Add 会自动处理 Update）
func (c *TTLCache[T]) Set(key string, value T) {
	c.storage.Add(key, CacheItem[T]{
		Value:     value,
		ExpiredAt: c.now().Add(c.ttl),
	})
}

// Get 带过期检查
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}

	if c.now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}

	return item.Value, true
}

// Pop 读取后立即删除
func (c *TTLCache[T]) Pop(key string) (T, bool) {
	v, ok := c.Get(key)
	if ok {
		c.storage.Remove(key)
	}
	return v, ok
}

// RemoveExpired 清除所有已过期条目，返回清除数量
func (c *TTLCache[T]) RemoveExpired() int {
	now := c.now()
	removed := 0
	for _, key := range c.storage.Keys() {
		item, ok := c.storage.Peek(key)
		if ok && now.After(item.ExpiredAt) {
			c.storage.Remove(key)
			removed++
		}
	}
	return removed
}

// Len 当前长度（包含尚未清理的过期条目）
func (c *TTLCache[T]) Len() int {
	return c.storage.Len()
}
