package metrics

import (
	"context"

	"sibyl/internal/llm"
	"sibyl/internal/store/costledger"
	"sibyl/internal/store/decisionlog"
)

// EngineStatsCollector 导出引擎进程内统计。
type EngineStatsCollector struct {
	Snapshot func() llm.StatsSnapshot
}

func (c *EngineStatsCollector) Name() string { return "engine_stats" }

func (c *EngineStatsCollector) Collect(ctx context.Context) ([]Sample, error) {
	snap := c.Snapshot()
	return []Sample{
		{Name: "llm_engine_calls_total", Value: snap.TotalCalls, Description: "Total decide() calls", Type: "counter"},
		{Name: "llm_engine_cache_hits_total", Value: snap.CacheHits, Description: "Decide calls served from cache", Type: "counter"},
		{Name: "llm_engine_errors_total", Value: snap.Errors, Description: "Decide calls that failed internally", Type: "counter"},
		{Name: "llm_engine_cost_usd_total", Value: snap.TotalCostUSD, Description: "Accumulated provider cost in USD", Type: "counter"},
		{Name: "llm_engine_cache_hit_rate", Value: snap.CacheHitRate, Description: "Cache hit rate since start", Type: "gauge"},
	}, nil
}

// DecisionLogCollector 导出审计日志聚合计数。
type DecisionLogCollector struct {
	Logs *decisionlog.Store
}

func (c *DecisionLogCollector) Name() string { return "decision_log" }

func (c *DecisionLogCollector) Collect(ctx context.Context) ([]Sample, error) {
	counts, err := c.Logs.CountByPoint(ctx)
	if err != nil {
		return nil, err
	}
	errors, err := c.Logs.CountErrors(ctx)
	if err != nil {
		return nil, err
	}
	samples := make([]Sample, 0, len(counts)+1)
	for point, n := range counts {
		samples = append(samples, Sample{
			Name:        "llm_decisions_logged_total",
			Value:       n,
			Description: "Audit log records per decision point",
			Type:        "counter",
			Labels:      map[string]string{"decision_point": point},
		})
	}
	samples = append(samples, Sample{
		Name:        "llm_decision_errors_logged_total",
		Value:       errors,
		Description: "Audit log records with an error",
		Type:        "counter",
	})
	return samples, nil
}

// CostLedgerCollector 导出成本台账聚合。
type CostLedgerCollector struct {
	Ledger *costledger.Store
}

func (c *CostLedgerCollector) Name() string { return "cost_ledger" }

func (c *CostLedgerCollector) Collect(ctx context.Context) ([]Sample, error) {
	totals, err := c.Ledger.Totals(ctx)
	if err != nil {
		return nil, err
	}
	samples := []Sample{
		{Name: "llm_provider_calls_total", Value: totals.Calls, Description: "Successful provider calls recorded in the ledger", Type: "counter"},
		{Name: "llm_provider_tokens_total", Value: totals.TotalTokens, Description: "Total tokens recorded in the ledger", Type: "counter"},
		{Name: "llm_provider_cost_usd_total", Value: totals.TotalCostUSD, Description: "Total provider cost recorded in the ledger", Type: "counter"},
	}
	for point, n := range totals.ByPoint {
		samples = append(samples, Sample{
			Name:        "llm_provider_calls_by_point_total",
			Value:       n,
			Description: "Provider calls per decision point",
			Type:        "counter",
			Labels:      map[string]string{"decision_point": point},
		})
	}
	return samples, nil
}
