// Package llm 实现 LLM 决策引擎：缓存、解析、校验与审计。
package llm

import "time"

// DecisionPoint 交易生命周期中可请求 LLM 决策的五个时点。
type DecisionPoint string

const (
	PointEntry          DecisionPoint = "entry"
	PointExit           DecisionPoint = "exit"
	PointStake          DecisionPoint = "stake"
	PointAdjustPosition DecisionPoint = "adjust_position"
	PointLeverage       DecisionPoint = "leverage"
)

// AllPoints 按固定顺序返回全部决策点。
func AllPoints() []DecisionPoint {
	return []DecisionPoint{PointEntry, PointExit, PointStake, PointAdjustPosition, PointLeverage}
}

func (p DecisionPoint) Valid() bool {
	switch p {
	case PointEntry, PointExit, PointStake, PointAdjustPosition, PointLeverage:
		return true
	}
	return false
}

// DefaultDecision 各决策点的兜底动作。
func (p DecisionPoint) DefaultDecision() string {
	switch p {
	case PointEntry, PointExit:
		return "hold"
	case PointAdjustPosition:
		return "no_change"
	default:
		return "default"
	}
}

// Request 一次决策请求。构造后不应再修改；
// Context 会整体参与缓存键哈希并整体传给提示词渲染。
type Request struct {
	Point   DecisionPoint
	Pair    string
	Context map[string]any
	TradeID *int
}

// Response 一次决策结果。Parser 或兜底构造器创建后由引擎补充
// 用量/成本字段，入缓存后视为只读共享。
type Response struct {
	Decision   string         `json:"decision"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
	Parameters map[string]any `json:"parameters"`

	LatencyMs int64 `json:"latency_ms"`

	TokensUsed            int `json:"tokens_used,omitempty"`
	PromptTokens          int `json:"prompt_tokens,omitempty"`
	CompletionTokens      int `json:"completion_tokens,omitempty"`
	PromptCacheHitTokens  int `json:"prompt_cache_hit_tokens,omitempty"`
	PromptCacheMissTokens int `json:"prompt_cache_miss_tokens,omitempty"`

	CostUSD float64 `json:"cost_usd,omitempty"`
	Cached  bool    `json:"cached"`
}

// DefaultResponse 构造指定决策点的兜底响应（confidence=0）。
func DefaultResponse(point DecisionPoint, reasoning string) *Response {
	return &Response{
		Decision:   point.DefaultDecision(),
		Confidence: 0,
		Reasoning:  reasoning,
		Parameters: map[string]any{},
	}
}

// PointConfig 单个决策点的运行配置。
type PointConfig struct {
	Enabled             bool
	TTL                 time.Duration
	ConfidenceThreshold float64
	CacheSize           int
}

// DefaultPointConfig 未显式配置时的取值：TTL 60s，阈值 0.5。
func DefaultPointConfig() PointConfig {
	return PointConfig{
		Enabled:             true,
		TTL:                 60 * time.Second,
		ConfidenceThreshold: 0.5,
		CacheSize:           128,
	}
}

// requiresConfidence 返回该决策点是否参与置信度阈值校验。
// stake/leverage 属于参数调节型决策，恒定放行。
func (p DecisionPoint) requiresConfidence() bool {
	return p != PointStake && p != PointLeverage
}
