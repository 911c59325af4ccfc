package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyDeterministic(t *testing.T) {
	a := Request{
		Point: PointEntry,
		Context: map[string]any{
			"pair":  "BTCUSDT",
			"price": 64250.5,
			"signals": map[string]any{
				"rsi":  28.4,
				"macd": "bullish_cross",
			},
		},
	}
	b := Request{
		Point: PointEntry,
		Context: map[string]any{
			"signals": map[string]any{
				"macd": "bullish_cross",
				"rsi":  28.4,
			},
			"price": 64250.5,
			"pair":  "BTCUSDT",
		},
	}
	assert.Equal(t, CacheKey(a), CacheKey(b), "键顺序不同的等价上下文应得到同一缓存键")
	assert.Len(t, CacheKey(a), 32)
}

func TestCacheKeyVariesByPointAndContext(t *testing.T) {
	base := Request{Point: PointEntry, Context: map[string]any{"pair": "BTCUSDT"}}

	otherPoint := base
	otherPoint.Point = PointExit
	assert.NotEqual(t, CacheKey(base), CacheKey(otherPoint))

	otherCtx := Request{Point: PointEntry, Context: map[string]any{"pair": "ETHUSDT"}}
	assert.NotEqual(t, CacheKey(base), CacheKey(otherCtx))
}

func TestCacheKeyUnserializableValue(t *testing.T) {
	req := Request{
		Point:   PointStake,
		Context: map[string]any{"fn": func() {}},
	}
	// 不可序列化的值降级为字符串表示，不 panic 且保持确定性
	assert.Len(t, CacheKey(req), 32)
	assert.Equal(t, CacheKey(req), CacheKey(req))
}
