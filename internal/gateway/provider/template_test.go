package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHeadersAPIKey(t *testing.T) {
	headers, err := renderHeaders(map[string]any{
		"Authorization": "Bearer {api_key}",
		"X-Api-Key":     "{api_key}",
		"Content-Type":  "application/json",
	}, "sk-abc123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-abc123", headers["Authorization"])
	assert.Equal(t, "sk-abc123", headers["X-Api-Key"])
	assert.Equal(t, "application/json", headers["Content-Type"])
}

func TestRenderHeadersEscapesKey(t *testing.T) {
	// 密钥含 JSON 特殊字符时替换后必须仍是合法 JSON
	headers, err := renderHeaders(map[string]any{
		"Authorization": "Bearer {api_key}",
	}, `sk-"quoted"\slash`)
	require.NoError(t, err)
	assert.Equal(t, `Bearer sk-"quoted"\slash`, headers["Authorization"])
}

func TestRenderBodyPlaceholders(t *testing.T) {
	tmpl := map[string]any{
		"model":       "{model}",
		"temperature": "{temperature}",
		"max_tokens":  4096,
		"messages": []any{
			map[string]any{"role": "system", "content": "你是交易助手"},
			map[string]any{"role": "user", "content": "{prompt}"},
		},
		"meta": map[string]any{
			"note": "temp={temperature} model={model}",
		},
	}

	body := renderBody(tmpl, "enter long?", 0.7, "deepseek-chat")

	assert.Equal(t, "deepseek-chat", body["model"])
	assert.Equal(t, 0.7, body["temperature"], "独占占位符应替换为数值而非字符串")
	assert.Equal(t, 4096, body["max_tokens"])

	messages := body["messages"].([]any)
	assert.Equal(t, "enter long?", messages[1].(map[string]any)["content"])

	meta := body["meta"].(map[string]any)
	assert.Equal(t, "temp=0.7 model=deepseek-chat", meta["note"])
}

func TestRenderBodyDoesNotMutateTemplate(t *testing.T) {
	tmpl := map[string]any{
		"messages": []any{
			map[string]any{"content": "{prompt}"},
		},
	}
	_ = renderBody(tmpl, "first", 0.5, "m")
	body := renderBody(tmpl, "second", 0.5, "m")
	assert.Equal(t, "second", body["messages"].([]any)[0].(map[string]any)["content"])
}

func TestComputeCost(t *testing.T) {
	u := Usage{PromptTokens: 1_000_000, CompletionTokens: 500_000, CacheReadTokens: 200_000}
	r := CostRates{InputPerMTok: 0.27, OutputPerMTok: 1.10, CacheReadPerMTok: 0.07}
	assert.InDelta(t, 0.27+0.55+0.014, ComputeCost(u, r), 1e-9)

	assert.Zero(t, ComputeCost(Usage{}, r))
	assert.Zero(t, ComputeCost(u, CostRates{}))
}
