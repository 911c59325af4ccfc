package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func baseConfig(url string) Config {
	return Config{
		Kind:   KindHTTP,
		Name:   "test",
		APIURL: url,
		APIKey: "sk-test-1234",
		Model:  "test-model",
		Headers: map[string]any{
			"Content-Type":  "application/json",
			"Authorization": "Bearer {api_key}",
		},
		RequestBody: map[string]any{
			"model":       "{model}",
			"temperature": "{temperature}",
			"messages": []any{
				map[string]any{"role": "user", "content": "{prompt}"},
			},
		},
		ResponsePath: "choices.0.message.content",
		Timeout:      5 * time.Second,
	}
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"decision\":\"long\"}"}}]}`))
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(baseConfig(srv.URL))
	require.NoError(t, err)

	content, err := p.Complete(context.Background(), "should I enter?", 0.3)
	require.NoError(t, err)
	assert.Equal(t, `{"decision":"long"}`, content)

	assert.Equal(t, "Bearer sk-test-1234", gotAuth)
	assert.Equal(t, "test-model", gjson.GetBytes(gotBody, "model").String())
	assert.Equal(t, 0.3, gjson.GetBytes(gotBody, "temperature").Float())
	assert.Equal(t, "should I enter?", gjson.GetBytes(gotBody, "messages.0.content").String())

	// usage_path 未配置：用量保持全零
	assert.Zero(t, p.UsageInfo().TotalTokens)
}

func TestCompleteNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(baseConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "p", 0.5)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusTooManyRequests, terr.Status)
}

func TestCompleteResponsePathMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"unexpected shape"}`))
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(baseConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "p", 0.5)
	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "choices.0.message.content", xerr.Path)
	assert.Contains(t, xerr.Payload, "unexpected shape")
}

func TestCompleteUsageExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices":[{"message":{"content":"ok"}}],
			"usage":{"prompt_tokens":100,"completion_tokens":50,"cache_hit":30}
		}`))
	}))
	defer srv.Close()

	cfg := baseConfig(srv.URL)
	cfg.UsagePath = "usage"
	cfg.UsageFields = map[string]string{
		"input_tokens":      "prompt_tokens",
		"output_tokens":     "completion_tokens",
		"cache_read_tokens": "cache_hit",
	}
	cfg.Cost = CostRates{InputPerMTok: 1.0, OutputPerMTok: 2.0}

	p, err := NewHTTPProvider(cfg)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "p", 0.5)
	require.NoError(t, err)

	u := p.UsageInfo()
	assert.Equal(t, 100, u.PromptTokens)
	assert.Equal(t, 50, u.CompletionTokens)
	assert.Equal(t, 150, u.TotalTokens) // 未映射 total 时回退为 prompt+completion
	assert.Equal(t, 30, u.CacheReadTokens)
	assert.InDelta(t, 100.0/1e6*1.0+50.0/1e6*2.0, u.CostUSD, 1e-12)
}

func TestCompleteUsagePathMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	cfg := baseConfig(srv.URL)
	cfg.UsagePath = "usage"
	cfg.UsageFields = map[string]string{
		"input_tokens":  "prompt_tokens",
		"output_tokens": "completion_tokens",
	}

	p, err := NewHTTPProvider(cfg)
	require.NoError(t, err)

	// usage 缺失只按 0 记录，补全不失败
	content, err := p.Complete(context.Background(), "p", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Zero(t, p.UsageInfo().TotalTokens)
}

func TestCompleteEnsureJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{
				"content": "以下是结论：\n```json\n{\"decision\":\"close\"}\n```",
			}}},
		})
		w.Write(body)
	}))
	defer srv.Close()

	cfg := baseConfig(srv.URL)
	cfg.EnsureJSON = true

	p, err := NewHTTPProvider(cfg)
	require.NoError(t, err)

	content, err := p.Complete(context.Background(), "p", 0.5)
	require.NoError(t, err)
	assert.Equal(t, `{"decision":"close"}`, content)
}

func TestNewHTTPProviderValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"缺少 api_url", func(c *Config) { c.APIURL = "" }, "api_url"},
		{"缺少 headers", func(c *Config) { c.Headers = nil }, "headers"},
		{"缺少 request_body", func(c *Config) { c.RequestBody = nil }, "request_body"},
		{"缺少 response_path", func(c *Config) { c.ResponsePath = "" }, "response_path"},
		{"usage_path 缺少字段映射", func(c *Config) {
			c.UsagePath = "usage"
			c.UsageFields = map[string]string{"input_tokens": "prompt_tokens"}
		}, "usage_fields"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig("http://example.invalid")
			tc.mutate(&cfg)
			_, err := NewHTTPProvider(cfg)
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestNewOpenAIPreset(t *testing.T) {
	p, err := New(Config{Kind: KindOpenAI, APIKey: "sk-x", Model: "gpt-4o"})
	require.NoError(t, err)
	hp, ok := p.(*HTTPProvider)
	require.True(t, ok)
	assert.Equal(t, "choices.0.message.content", hp.cfg.ResponsePath)
	assert.Equal(t, "usage", hp.cfg.UsagePath)
	assert.NotEmpty(t, hp.cfg.Headers)
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(Config{Kind: Kind("grpc")})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "kind", cerr.Field)
}
