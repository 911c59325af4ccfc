package llm

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Stats 引擎实例级的累计统计。
type Stats struct {
	mu        sync.Mutex
	total     int64
	cacheHits int64
	errors    int64
	cost      decimal.Decimal
}

// StatsSnapshot 只读快照，含派生的缓存命中率。
type StatsSnapshot struct {
	TotalCalls   int64   `json:"total_calls"`
	CacheHits    int64   `json:"cache_hits"`
	Errors       int64   `json:"errors"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	CacheHitRate float64 `json:"cache_hit_rate"`
}

func NewStats() *Stats {
	return &Stats{cost: decimal.Zero}
}

func (s *Stats) recordCall() {
	s.mu.Lock()
	s.total++
	s.mu.Unlock()
}

func (s *Stats) recordCacheHit() {
	s.mu.Lock()
	s.cacheHits++
	s.mu.Unlock()
}

func (s *Stats) recordError() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

func (s *Stats) addCost(usd float64) {
	if usd <= 0 {
		return
	}
	s.mu.Lock()
	s.cost = s.cost.Add(decimal.NewFromFloat(usd))
	s.mu.Unlock()
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		TotalCalls: s.total,
		CacheHits:  s.cacheHits,
		Errors:     s.errors,
	}
	snap.TotalCostUSD, _ = s.cost.Float64()
	if s.total > 0 {
		snap.CacheHitRate = float64(s.cacheHits) / float64(s.total)
	}
	return snap
}
