package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	placeholderAPIKey      = "{api_key}"
	placeholderPrompt      = "{prompt}"
	placeholderTemperature = "{temperature}"
	placeholderModel       = "{model}"
)

// renderHeaders 对整个序列化后的 header 结构做 {api_key} 字符串级替换，
// 占位符可以出现在任意位置（包括嵌在其它字符串内部）。
func renderHeaders(tmpl map[string]any, apiKey string) (map[string]string, error) {
	b, err := json.Marshal(tmpl)
	if err != nil {
		return nil, fmt.Errorf("序列化 headers 模板失败: %w", err)
	}
	replaced := strings.ReplaceAll(string(b), placeholderAPIKey, jsonEscape(apiKey))
	var decoded map[string]any
	if err := json.Unmarshal([]byte(replaced), &decoded); err != nil {
		return nil, fmt.Errorf("headers 模板替换后不再是合法 JSON: %w", err)
	}
	out := make(map[string]string, len(decoded))
	for k, v := range decoded {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// jsonEscape 返回 s 作为 JSON 字符串片段的安全形式（去掉首尾引号）。
func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

// renderBody 深拷贝请求体模板并递归替换占位符。
// 特例：字符串值恰好等于 {temperature} 时替换为数值（保留类型）；
// 否则按字符串片段替换。
func renderBody(tmpl map[string]any, prompt string, temperature float64, model string) map[string]any {
	out := make(map[string]any, len(tmpl))
	for k, v := range tmpl {
		out[k] = renderValue(v, prompt, temperature, model)
	}
	return out
}

func renderValue(v any, prompt string, temperature float64, model string) any {
	switch val := v.(type) {
	case string:
		if val == placeholderTemperature {
			return temperature
		}
		s := strings.ReplaceAll(val, placeholderPrompt, prompt)
		s = strings.ReplaceAll(s, placeholderModel, model)
		s = strings.ReplaceAll(s, placeholderTemperature, strconv.FormatFloat(temperature, 'g', -1, 64))
		return s
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = renderValue(item, prompt, temperature, model)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = renderValue(item, prompt, temperature, model)
		}
		return out
	default:
		return val
	}
}
