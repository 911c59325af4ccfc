package llm

import (
	"context"
	"time"

	"sibyl/internal/gateway/provider"
	"sibyl/internal/logger"
	"sibyl/internal/pkg/cache"

	"github.com/google/uuid"
)

// PromptBuilder 外部提示词管理器：按决策点渲染提示词。
// 模板缺失返回错误，引擎按提示词构建失败处理。
type PromptBuilder interface {
	BuildPrompt(point string, context map[string]any) (string, error)
}

// AttemptRecord 每次 decide() 尝试（无论成败）写一条审计记录。
type AttemptRecord struct {
	TraceID     string
	Timestamp   time.Time
	Point       DecisionPoint
	Pair        string
	TradeID     *int
	Prompt      string
	RawResponse string
	Response    *Response
	Error       string
}

// AuditLogger 决策审计落库。引擎容忍其不可用：
// 写入失败只记日志，绝不影响决策返回。
type AuditLogger interface {
	LogAttempt(ctx context.Context, rec AttemptRecord) error
}

// UsageRecord 一次成功的 provider 调用的用量/成本。
type UsageRecord struct {
	TraceID   string
	Provider  string
	Point     DecisionPoint
	Pair      string
	Usage     provider.Usage
	Timestamp time.Time
}

// CostSink 成本台账，同样允许失败。
type CostSink interface {
	RecordUsage(ctx context.Context, rec UsageRecord) error
}

// Engine 编排完整的 decide() 生命周期：
// 启用门控 → 缓存查询 → 提示词构建 → provider 调用 → 解析 →
// 校验 → 缓存/审计 → 返回。每个决策点持有独立缓存。
// 单次调用同步阻塞，内部无并发；缓存自身已串行化，
// 跨 goroutine 并发 decide() 是安全的（相同键并发未命中会各打一次
// provider，属接受的低效而非错误）。
type Engine struct {
	provider provider.CompletionProvider
	prompts  PromptBuilder
	parser   *Parser
	schemas  *SchemaRegistry
	audit    AuditLogger
	costs    CostSink

	points      map[DecisionPoint]PointConfig
	caches      map[DecisionPoint]*cache.Cache
	temperature float64
	stats       *Stats
	nowFn       func() time.Time
}

// EngineOptions Engine 的装配参数；Audit/Costs/Schemas 可为 nil。
// Temperature 原值透传给 provider，0 是合法配置（贪婪采样），
// 默认值由配置层负责。
type EngineOptions struct {
	Provider    provider.CompletionProvider
	Prompts     PromptBuilder
	Parser      *Parser
	Schemas     *SchemaRegistry
	Audit       AuditLogger
	Costs       CostSink
	Points      map[DecisionPoint]PointConfig
	Temperature float64
}

func NewEngine(opts EngineOptions) *Engine {
	parser := opts.Parser
	if parser == nil {
		parser = NewParser()
	}
	points := make(map[DecisionPoint]PointConfig, len(AllPoints()))
	caches := make(map[DecisionPoint]*cache.Cache, len(AllPoints()))
	for _, p := range AllPoints() {
		cfg, ok := opts.Points[p]
		if !ok {
			cfg = DefaultPointConfig()
		}
		if cfg.TTL <= 0 {
			cfg.TTL = DefaultPointConfig().TTL
		}
		points[p] = cfg
		caches[p] = cache.New(cfg.CacheSize)
	}
	return &Engine{
		provider:    opts.Provider,
		prompts:     opts.Prompts,
		parser:      parser,
		schemas:     opts.Schemas,
		audit:       opts.Audit,
		costs:       opts.Costs,
		points:      points,
		caches:      caches,
		temperature: opts.Temperature,
		stats:       NewStats(),
		nowFn:       time.Now,
	}
}

// Decide 执行一次决策。任何内部失败都被就地消化，
// 调用方永远拿到一个响应——最坏是该决策点的兜底响应。
func (e *Engine) Decide(ctx context.Context, req Request) *Response {
	e.stats.recordCall()
	traceID := uuid.NewString()

	cfg, ok := e.points[req.Point]
	if !ok || !req.Point.Valid() {
		logger.Warnf("[%s] 未知决策点 %q", traceID, req.Point)
		return DefaultResponse(req.Point, "未知决策点")
	}
	if !cfg.Enabled {
		return DefaultResponse(req.Point, "LLM 决策在该决策点未启用")
	}

	key := CacheKey(req)
	c := e.caches[req.Point]
	if cached, hit := c.Get(key, cfg.TTL); hit {
		e.stats.recordCacheHit()
		resp := *cached.(*Response) // 缓存内容只读共享，返回副本
		resp.Cached = true
		logger.Debugf("[%s] 缓存命中 point=%s pair=%s key=%s", traceID, req.Point, req.Pair, key)
		// 缓存里存的是 provider 原始决策（含被拒的），阈值校验在命中时同样要过一遍
		if req.Point.requiresConfidence() && resp.Confidence < cfg.ConfidenceThreshold {
			return DefaultResponse(req.Point, "置信度低于阈值")
		}
		return &resp
	}

	prompt, err := e.prompts.BuildPrompt(string(req.Point), req.Context)
	if err != nil {
		return e.fail(ctx, traceID, req, "", "", "提示词构建失败", err)
	}

	logger.LogLLMRequest(e.provider.Name(), string(req.Point), prompt, "")
	start := e.nowFn()
	raw, err := e.provider.Complete(ctx, prompt, e.temperature)
	latency := e.nowFn().Sub(start).Milliseconds()
	if err != nil {
		return e.fail(ctx, traceID, req, prompt, "", "provider 调用失败", err)
	}
	logger.LogLLMResponse(e.provider.Name(), string(req.Point), raw)

	resp, err := e.parser.Parse(raw)
	if err != nil {
		return e.fail(ctx, traceID, req, prompt, raw, "响应解析失败", err)
	}
	if e.schemas != nil {
		if err := e.schemas.Validate(req.Point, resp.Parameters); err != nil {
			return e.fail(ctx, traceID, req, prompt, raw, "参数 schema 校验失败", err)
		}
	}

	e.attachUsage(resp, latency)
	e.stats.addCost(resp.CostUSD)

	// provider 成功后无条件缓存并落审计，与阈值校验结果无关：
	// 避免同一请求在 TTL 窗口内反复打模型，同时保留被拒决策的完整审计。
	c.Set(key, resp)
	e.logAttempt(ctx, AttemptRecord{
		TraceID:     traceID,
		Timestamp:   e.nowFn(),
		Point:       req.Point,
		Pair:        req.Pair,
		TradeID:     req.TradeID,
		Prompt:      prompt,
		RawResponse: raw,
		Response:    resp,
	})
	e.recordUsage(ctx, traceID, req)

	if req.Point.requiresConfidence() && resp.Confidence < cfg.ConfidenceThreshold {
		logger.Infof("[%s] 决策置信度不足 point=%s decision=%s confidence=%.2f < %.2f，返回兜底",
			traceID, req.Point, resp.Decision, resp.Confidence, cfg.ConfidenceThreshold)
		return DefaultResponse(req.Point, "置信度低于阈值")
	}
	return resp
}

// fail 统一的错误出口：计数、审计（response 置空）、返回兜底。
func (e *Engine) fail(ctx context.Context, traceID string, req Request, prompt, raw, stage string, err error) *Response {
	e.stats.recordError()
	logger.Warnf("[%s] %s point=%s pair=%s: %v", traceID, stage, req.Point, req.Pair, err)
	e.logAttempt(ctx, AttemptRecord{
		TraceID:     traceID,
		Timestamp:   e.nowFn(),
		Point:       req.Point,
		Pair:        req.Pair,
		TradeID:     req.TradeID,
		Prompt:      prompt,
		RawResponse: raw,
		Error:       err.Error(),
	})
	return DefaultResponse(req.Point, "LLM 决策暂不可用: "+stage)
}

// attachUsage 把最近一次调用的用量/成本写回响应。
func (e *Engine) attachUsage(resp *Response, latencyMs int64) {
	u := e.provider.UsageInfo()
	resp.LatencyMs = latencyMs
	resp.PromptTokens = u.PromptTokens
	resp.CompletionTokens = u.CompletionTokens
	resp.TokensUsed = u.TotalTokens
	resp.PromptCacheHitTokens = u.CacheReadTokens
	resp.PromptCacheMissTokens = u.CacheCreationTokens
	resp.CostUSD = u.CostUSD
}

// logAttempt 审计写入失败只告警，绝不向 decide() 传播。
func (e *Engine) logAttempt(ctx context.Context, rec AttemptRecord) {
	if e.audit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[%s] 审计写入 panic: %v", rec.TraceID, r)
		}
	}()
	if err := e.audit.LogAttempt(ctx, rec); err != nil {
		logger.Errorf("[%s] 审计写入失败: %v", rec.TraceID, err)
	}
}

func (e *Engine) recordUsage(ctx context.Context, traceID string, req Request) {
	if e.costs == nil {
		return
	}
	rec := UsageRecord{
		TraceID:   traceID,
		Provider:  e.provider.Name(),
		Point:     req.Point,
		Pair:      req.Pair,
		Usage:     e.provider.UsageInfo(),
		Timestamp: e.nowFn(),
	}
	if err := e.costs.RecordUsage(ctx, rec); err != nil {
		logger.Errorf("[%s] 成本台账写入失败: %v", traceID, err)
	}
}

// Stats 返回引擎累计统计的只读快照。
func (e *Engine) Stats() StatsSnapshot {
	return e.stats.Snapshot()
}

// ClearCaches 清空全部决策点缓存（运维用）。
func (e *Engine) ClearCaches() {
	for _, c := range e.caches {
		c.Clear()
	}
}
