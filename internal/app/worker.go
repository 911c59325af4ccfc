package app

import (
	"context"
	"time"

	"sibyl/internal/llm"
	"sibyl/internal/logger"
)

// statsFlushWorker 周期性把引擎累计统计打到日志，作为没有
// 外部抓取方时的兜底可观测手段。由 App.Run 显式启动，
// ctx 取消即退出，不做任何隐式全局注册。
type statsFlushWorker struct {
	snapshot func() llm.StatsSnapshot
	interval time.Duration
}

func newStatsFlushWorker(snapshot func() llm.StatsSnapshot, interval time.Duration) *statsFlushWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &statsFlushWorker{snapshot: snapshot, interval: interval}
}

func (w *statsFlushWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *statsFlushWorker) flush() {
	s := w.snapshot()
	if s.TotalCalls == 0 && s.CacheHits == 0 && s.Errors == 0 {
		return
	}
	logger.Infof("LLM 统计: 调用=%d 缓存命中=%d 错误=%d 命中率=%.1f%% 累计成本=$%.4f",
		s.TotalCalls, s.CacheHits, s.Errors, s.CacheHitRate*100, s.TotalCostUSD)
}
