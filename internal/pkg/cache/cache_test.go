package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWithinTTL(t *testing.T) {
	c := New(4)
	c.Set("k", "v")
	got, ok := c.Get("k", time.Minute)
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestGetAfterTTLRemovesKey(t *testing.T) {
	c := New(4)
	now := time.Now()
	c.nowFn = func() time.Time { return now }
	c.Set("k", "v")

	now = now.Add(61 * time.Second)
	_, ok := c.Get("k", time.Minute)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestExpiryBoundaryIsInclusive(t *testing.T) {
	c := New(4)
	now := time.Now()
	c.nowFn = func() time.Time { return now }
	c.Set("k", "v")

	// age == ttl 视为过期
	now = now.Add(time.Minute)
	_, ok := c.Get("k", time.Minute)
	assert.False(t, ok)
}

func TestLRUBound(t *testing.T) {
	c := New(3)
	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("k0", time.Minute)
	assert.False(t, ok, "least recently used key should be evicted first")
	for i := 1; i < 4; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i), time.Minute)
		assert.True(t, ok)
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c := New(2)
	c.Set("a", 1)
	c.Set("b", 2)
	_, ok := c.Get("a", time.Minute)
	require.True(t, ok)

	// b 现在是最久未使用，插入 c 应淘汰 b
	c.Set("c", 3)
	_, ok = c.Get("b", time.Minute)
	assert.False(t, ok)
	_, ok = c.Get("a", time.Minute)
	assert.True(t, ok)
}

func TestSetRefreshesRecencyAndTimestamp(t *testing.T) {
	c := New(2)
	now := time.Now()
	c.nowFn = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(50 * time.Second)
	c.Set("a", 2)
	now = now.Add(30 * time.Second)

	// 覆盖后年龄从第二次写入算起
	got, ok := c.Get("a", time.Minute)
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestClear(t *testing.T) {
	c := New(4)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a", time.Minute)
	assert.False(t, ok)
}
