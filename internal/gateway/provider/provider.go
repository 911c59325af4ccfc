// Package provider 通过纯配置适配任意 LLM 厂商的 HTTP 接口。
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Usage 单次补全的用量与成本。
type Usage struct {
	PromptTokens        int
	CompletionTokens    int
	TotalTokens         int
	CacheReadTokens     int
	CacheCreationTokens int
	CostUSD             float64
}

// CompletionProvider 决策引擎依赖的最小接口。
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
	// UsageInfo 返回最近一次 Complete 的用量；usage_path 未配置时恒为零值。
	UsageInfo() Usage
}

// Kind 封闭的提供方协议枚举；按配置选择，不做开放式类查找。
type Kind string

const (
	KindHTTP   Kind = "http"
	KindOpenAI Kind = "openai"
)

// Config 完整描述一个提供方的请求/响应映射。
type Config struct {
	Kind   Kind
	Name   string
	APIURL string
	APIKey string
	Model  string

	// Headers/RequestBody 为模板：{api_key}/{prompt}/{temperature}/{model}
	// 占位符在请求时替换。
	Headers     map[string]any
	RequestBody map[string]any

	ResponsePath string
	EnsureJSON   bool

	UsagePath   string
	UsageFields map[string]string

	Cost    CostRates
	Timeout time.Duration
}

// New 按 Kind 构造提供方。openai 是 http 的预置映射。
func New(cfg Config) (CompletionProvider, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(string(cfg.Kind)))) {
	case KindHTTP, "":
		return NewHTTPProvider(cfg)
	case KindOpenAI:
		return NewHTTPProvider(applyOpenAIPreset(cfg))
	default:
		return nil, &ConfigError{Field: "kind", Reason: fmt.Sprintf("未知的提供方类型 %q", cfg.Kind)}
	}
}

// applyOpenAIPreset 为 OpenAI 兼容端点补全标准映射，已显式配置的字段不覆盖。
func applyOpenAIPreset(cfg Config) Config {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.openai.com/v1/chat/completions"
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]any{
			"Content-Type":  "application/json",
			"Authorization": "Bearer {api_key}",
		}
	}
	if cfg.RequestBody == nil {
		cfg.RequestBody = map[string]any{
			"model":       "{model}",
			"temperature": "{temperature}",
			"messages": []any{
				map[string]any{"role": "user", "content": "{prompt}"},
			},
		}
	}
	if cfg.ResponsePath == "" {
		cfg.ResponsePath = "choices.0.message.content"
	}
	if cfg.UsagePath == "" {
		cfg.UsagePath = "usage"
		cfg.UsageFields = map[string]string{
			"input_tokens":  "prompt_tokens",
			"output_tokens": "completion_tokens",
			"total_tokens":  "total_tokens",
		}
	}
	return cfg
}
