package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"sibyl/internal/logger"
	"sibyl/internal/pkg/jsonutil"

	"github.com/tidwall/gjson"
)

// usage_fields 里我们识别的映射键；input/output 为必填。
const (
	usageFieldInput         = "input_tokens"
	usageFieldOutput        = "output_tokens"
	usageFieldTotal         = "total_tokens"
	usageFieldCacheRead     = "cache_read_tokens"
	usageFieldCacheCreation = "cache_creation_tokens"
)

// HTTPProvider 通用 HTTP 提供方：请求/响应结构完全由配置映射决定，
// 不绑定任何厂商的固定 wire schema。
type HTTPProvider struct {
	cfg   Config
	httpc *http.Client

	mu        sync.Mutex
	lastUsage Usage
}

// NewHTTPProvider 校验必填映射后构造。缺失即 ConfigError，构造期失败。
func NewHTTPProvider(cfg Config) (*HTTPProvider, error) {
	if strings.TrimSpace(cfg.APIURL) == "" {
		return nil, &ConfigError{Field: "api_url", Reason: "必填"}
	}
	if len(cfg.Headers) == 0 {
		return nil, &ConfigError{Field: "headers", Reason: "必填"}
	}
	if len(cfg.RequestBody) == 0 {
		return nil, &ConfigError{Field: "request_body", Reason: "必填"}
	}
	if strings.TrimSpace(cfg.ResponsePath) == "" {
		return nil, &ConfigError{Field: "response_path", Reason: "必填"}
	}
	if strings.TrimSpace(cfg.UsagePath) != "" {
		if cfg.UsageFields[usageFieldInput] == "" || cfg.UsageFields[usageFieldOutput] == "" {
			return nil, &ConfigError{
				Field:  "usage_fields",
				Reason: "配置 usage_path 时必须提供 input_tokens 与 output_tokens 映射",
			}
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPProvider{
		cfg:   cfg,
		httpc: &http.Client{Timeout: timeout},
	}, nil
}

func (p *HTTPProvider) Name() string {
	if p.cfg.Name != "" {
		return p.cfg.Name
	}
	return "http"
}

// Complete 发送单次同步 POST，不在本层重试。
// 传输失败或非 2xx 会先记录完整请求/响应上下文再返回错误。
func (p *HTTPProvider) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	headers, err := renderHeaders(p.cfg.Headers, p.cfg.APIKey)
	if err != nil {
		return "", &ConfigError{Field: "headers", Reason: err.Error()}
	}
	body := renderBody(p.cfg.RequestBody, prompt, temperature, p.cfg.Model)
	payload, err := json.Marshal(body)
	if err != nil {
		return "", &ConfigError{Field: "request_body", Reason: fmt.Sprintf("序列化失败: %v", err)}
	}

	logger.LogLLMPayload(p.Name(), string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		p.logRequestContext(headers, payload, 0, nil)
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		p.logRequestContext(headers, payload, resp.StatusCode, nil)
		return "", &TransportError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode/100 != 2 {
		p.logRequestContext(headers, payload, resp.StatusCode, respBody)
		return "", &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(respBody)))}
	}

	content, err := p.extractContent(respBody)
	if err != nil {
		return "", err
	}
	p.storeUsage(respBody)
	return content, nil
}

// extractContent 用点分/下标路径从响应中取正文；
// 路径失配是常见的集成配置错误，必须带完整载荷报错，不允许静默。
func (p *HTTPProvider) extractContent(respBody []byte) (string, error) {
	result := gjson.GetBytes(respBody, p.cfg.ResponsePath)
	if !result.Exists() {
		return "", &ExtractionError{Path: p.cfg.ResponsePath, Payload: string(respBody)}
	}
	content := result.String()
	if p.cfg.EnsureJSON && !gjson.Valid(content) {
		if segment, ok := jsonutil.Extract(content); ok {
			return segment, nil
		}
	}
	return content, nil
}

// storeUsage 解析用量。usage_path 未配置时保持全零，
// 仅因用量上报缺失绝不让补全本身失败。
func (p *HTTPProvider) storeUsage(respBody []byte) {
	usage := Usage{}
	defer func() {
		usage.CostUSD = ComputeCost(usage, p.cfg.Cost)
		p.mu.Lock()
		p.lastUsage = usage
		p.mu.Unlock()
	}()
	path := strings.TrimSpace(p.cfg.UsagePath)
	if path == "" {
		return
	}
	node := gjson.GetBytes(respBody, path)
	if !node.Exists() {
		logger.Warnf("provider %s: usage 路径 %q 在响应中不存在，用量按 0 记录", p.Name(), path)
		return
	}
	usage.PromptTokens = int(node.Get(p.cfg.UsageFields[usageFieldInput]).Int())
	usage.CompletionTokens = int(node.Get(p.cfg.UsageFields[usageFieldOutput]).Int())
	if f := p.cfg.UsageFields[usageFieldTotal]; f != "" {
		usage.TotalTokens = int(node.Get(f).Int())
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if f := p.cfg.UsageFields[usageFieldCacheRead]; f != "" {
		usage.CacheReadTokens = int(node.Get(f).Int())
	}
	if f := p.cfg.UsageFields[usageFieldCacheCreation]; f != "" {
		usage.CacheCreationTokens = int(node.Get(f).Int())
	}
}

func (p *HTTPProvider) UsageInfo() Usage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUsage
}

// logRequestContext 失败时输出完整请求上下文（密钥掩码），排障刚需。
func (p *HTTPProvider) logRequestContext(headers map[string]string, payload []byte, status int, respBody []byte) {
	masked := make(map[string]string, len(headers))
	for k, v := range headers {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			if len(v) > 4 {
				v = "****" + v[len(v)-4:]
			} else {
				v = "****"
			}
		}
		masked[k] = v
	}
	logger.Errorf("provider %s 请求失败: POST %s status=%d headers=%v body=%s response=%s",
		p.Name(), p.cfg.APIURL, status, masked, string(payload), string(respBody))
}
