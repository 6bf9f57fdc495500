package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// ResponseCache 按 key 缓存接口响应（推荐结果等），过期自动清理
type ResponseCache struct {
	store *cache.Cache
}

// NewResponseCache ttl 为默认过期时间，清理间隔为 2*ttl
func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResponseCache{store: cache.New(ttl, 2*ttl)}
}

// Get 获取缓存值
func (c *ResponseCache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

// Set 使用默认过期时间写入
func (c *ResponseCache) Set(key string, value interface{}) {
	c.store.SetDefault(key, value)
}

// Delete 删除缓存
func (c *ResponseCache) Delete(key string) {
	c.store.Delete(key)
}

// Flush 清空所有缓存
func (c *ResponseCache) Flush() {
	c.store.Flush()
}

// Len 当前条数（含未清理的过期项）
func (c *ResponseCache) Len() int {
	return c.store.ItemCount()
}

// cacheItem 包装实际的数据，增加过期时间
type cacheItem[T any] struct {
	value     T
	expiredAt time.Time
}

// LRUCache 容量有限、带过期时间的 LRU 缓存（搜索结果等）
type LRUCache[T any] struct {
	storage *lru.Cache[string, cacheItem[T]]
	ttl     time.Duration
}

// NewLRUCache size 是最大缓存条数，ttl 是数据有效期
func NewLRUCache[T any](size int, ttl time.Duration) *LRUCache[T] {
	if size <= 0 {
		size = 128
	}
	// size > 0 时 lru.New 不会返回错误
	c, _ := lru.New[string, cacheItem[T]](size)
	return &LRUCache[T]{storage: c, ttl: ttl}
}

// Set 写入或更新
func (c *LRUCache[T]) Set(key string, value T) {
	c.storage.Add(key, cacheItem[T]{
		value:     value,
		expiredAt: time.Now().Add(c.ttl),
	})
}

// Get 读取，过期的条目会被删除
func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && time.Now().After(item.expiredAt) {
		c.storage.Remove(key)
		return zero, false
	}
	return item.value, true
}

// Purge 清空
func (c *LRUCache[T]) Purge() {
	c.storage.Purge()
}

// Len 当前条数
func (c *LRUCache[T]) Len() int {
	return c.storage.Len()
}
