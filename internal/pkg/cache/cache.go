// Package cache 提供带 TTL 惰性过期与 LRU 淘汰的有界缓存。
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key        string
	value      any
	insertedAt time.Time
}

// Cache 是 key→(value, 插入时间) 的有界存储。
// TTL 由每次 Get 调用方传入（不同决策点共用实现但各自配置 TTL）；
// 过期仅在 Get 时惰性检查，不做后台清扫。
// 所有操作内部串行化，可直接在多 goroutine 下使用。
type Cache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List // front = least recently used
	items   map[string]*list.Element
	nowFn   func() time.Time
}

func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &Cache{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		nowFn:   time.Now,
	}
}

// Get 返回 key 对应的值；不存在或已超过 ttl 则视为缺失。
// 过期条目在读到时即删除；命中会刷新 LRU 顺序。
func (c *Cache) Get(key string, ttl time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*entry)
	if ttl > 0 && c.nowFn().Sub(ent.insertedAt) >= ttl {
		c.order.Remove(el)
		delete(c.items, key)
		return nil, false
	}
	c.order.MoveToBack(el)
	return ent.value, true
}

// Set 写入（或覆盖）key。覆盖会刷新插入时间与 LRU 顺序；
// 超出 maxSize 时从队首逐条淘汰最久未使用的条目。
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
	el := c.order.PushBack(&entry{key: key, value: value, insertedAt: c.nowFn()})
	c.items[key] = el
	for len(c.items) > c.maxSize {
		front := c.order.Front()
		if front == nil {
			break
		}
		evicted := front.Value.(*entry)
		c.order.Remove(front)
		delete(c.items, evicted.key)
	}
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
