package llm

import (
	"encoding/json"
	"fmt"

	"sibyl/internal/logger"
	"sibyl/internal/pkg/jsonutil"
	"sibyl/internal/pkg/text"

	"github.com/tidwall/gjson"
)

// ParseError 表示从模型输出中无法恢复出任何合法 JSON 决策。
type ParseError struct {
	Reason  string
	Snippet string // 原始文本截断片段（<=200 字符），便于排查
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("决策解析失败: %s, 片段: %q", e.Reason, e.Snippet)
}

// Parser 从任意模型文本中恢复结构化决策。
// 流水线：清洗 → 直接解析 → 按优先级提取片段 → 字段提取。
// 任何策略都恢复不出 JSON 时报 ParseError，绝不凭空编造决策。
type Parser struct {
	// Strict 开启后，原始 confidence > 100 视为解析异常而非钳制。
	Strict bool
}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(raw string) (*Response, error) {
	snippet := text.Truncate(raw, 200)
	cleaned := jsonutil.Clean(raw)
	if cleaned == "" {
		return nil, &ParseError{Reason: "空响应", Snippet: snippet}
	}

	var payload any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		segment, ok := jsonutil.Extract(cleaned)
		if !ok || !gjson.Valid(segment) {
			return nil, &ParseError{Reason: "未找到合法 JSON", Snippet: snippet}
		}
		if err := json.Unmarshal([]byte(segment), &payload); err != nil {
			return nil, &ParseError{Reason: "JSON 片段解析失败", Snippet: snippet}
		}
	}

	if arr, ok := payload.([]any); ok {
		if len(arr) == 0 {
			return nil, &ParseError{Reason: "决策数组为空", Snippet: snippet}
		}
		logger.Debugf("解析到 JSON 数组，取首个元素作为决策载荷")
		payload = arr[0]
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "决策载荷必须是 JSON 对象", Snippet: snippet}
	}
	return p.extractFields(obj, snippet)
}

func (p *Parser) extractFields(obj map[string]any, snippet string) (*Response, error) {
	resp := &Response{
		Decision:   "hold",
		Parameters: map[string]any{},
	}

	if d, ok := obj["decision"].(string); ok && d != "" {
		resp.Decision = d
	}

	if rawConf, present := obj["confidence"]; present {
		conf, ok := coerceConfidence(rawConf)
		if !ok {
			logger.Warnf("confidence 字段无法转为数值: %v，按 0 处理", rawConf)
			conf = 0
		}
		if p.Strict && conf > 100 {
			return nil, &ParseError{
				Reason:  fmt.Sprintf("confidence=%v 超出百分比范围", rawConf),
				Snippet: snippet,
			}
		}
		resp.Confidence = NormalizeConfidence(conf)
	}

	if r, ok := obj["reasoning"].(string); ok {
		resp.Reasoning = r
	}

	if rawParams, present := obj["parameters"]; present && rawParams != nil {
		if params, ok := rawParams.(map[string]any); ok {
			resp.Parameters = params
		} else {
			logger.Warnf("parameters 字段不是对象（%T），已替换为空映射", rawParams)
		}
	}

	return resp, nil
}
