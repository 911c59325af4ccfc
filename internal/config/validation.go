package config

import (
	"fmt"
	"strings"
)

// validate 构造期校验；这里挡下的都是运行期不可恢复的配置错误。
func validate(cfg *Config) error {
	if err := validateProvider(&cfg.Provider); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Prompt.Dir) == "" {
		return fmt.Errorf("prompt.dir 必填")
	}
	return nil
}

func validateProvider(p *ProviderConfig) error {
	kind := strings.ToLower(strings.TrimSpace(p.Kind))
	switch kind {
	case "", "http", "openai":
	default:
		return fmt.Errorf("provider.kind 不支持: %q", p.Kind)
	}
	// openai 预置会补全映射字段，只要求端点密钥可用
	if kind == "openai" {
		return nil
	}
	if strings.TrimSpace(p.APIURL) == "" {
		return fmt.Errorf("provider.api_url 必填")
	}
	if len(p.Headers) == 0 {
		return fmt.Errorf("provider.headers 必填")
	}
	if len(p.RequestBody) == 0 {
		return fmt.Errorf("provider.request_body 必填")
	}
	if strings.TrimSpace(p.ResponsePath) == "" {
		return fmt.Errorf("provider.response_path 必填")
	}
	if strings.TrimSpace(p.UsagePath) != "" {
		if p.UsageFields["input_tokens"] == "" || p.UsageFields["output_tokens"] == "" {
			return fmt.Errorf("provider.usage_fields 配置 usage_path 时必须包含 input_tokens 与 output_tokens")
		}
	}
	return nil
}
