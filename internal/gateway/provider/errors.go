package provider

import "fmt"

// ConfigError 构造期配置缺失/非法，运行期不可恢复。
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider 配置错误 [%s]: %s", e.Field, e.Reason)
}

// TransportError HTTP 层失败：超时、连接错误或非 2xx 状态。
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider 请求失败: status=%d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("provider 请求失败: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExtractionError 配置的 content/usage 路径与实际响应形状不符。
// 携带完整响应载荷，这是集成排障的刚需而非可选项。
type ExtractionError struct {
	Path    string
	Payload string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("响应路径 %q 无法解析, 响应载荷: %s", e.Path, e.Payload)
}
