package config

import (
	"time"

	"sibyl/internal/llm"
)

const (
	defaultTTLSeconds   = 60
	defaultThreshold    = 0.5
	defaultCacheSize    = 128
	defaultTemperature  = 0.5
	defaultTimeoutSecs  = 60
	defaultMetricsAddr  = ":9102"
	defaultFlushSeconds = 300
)

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.LLM.Temperature == nil {
		c.LLM.Temperature = floatPtr(defaultTemperature)
	}
	if c.LLM.Points == nil {
		c.LLM.Points = map[string]PointConfig{}
	}
	for _, p := range llm.AllPoints() {
		pc := c.LLM.Points[string(p)]
		if pc.TTLSeconds <= 0 {
			pc.TTLSeconds = defaultTTLSeconds
		}
		if pc.ConfidenceThreshold == nil {
			pc.ConfidenceThreshold = floatPtr(defaultThreshold)
		}
		if pc.CacheSize <= 0 {
			pc.CacheSize = defaultCacheSize
		}
		c.LLM.Points[string(p)] = pc
	}
	if c.Provider.TimeoutSeconds <= 0 {
		c.Provider.TimeoutSeconds = defaultTimeoutSecs
	}
	if c.Metrics.HTTPAddr == "" {
		c.Metrics.HTTPAddr = defaultMetricsAddr
	}
	if c.Metrics.FlushIntervalSeconds <= 0 {
		c.Metrics.FlushIntervalSeconds = defaultFlushSeconds
	}
}

// PointConfigs 转换为引擎的决策点配置。
// 未在配置文件中出现的决策点默认启用。
func (c *Config) PointConfigs() map[llm.DecisionPoint]llm.PointConfig {
	out := make(map[llm.DecisionPoint]llm.PointConfig, len(llm.AllPoints()))
	for _, p := range llm.AllPoints() {
		pc := c.LLM.Points[string(p)]
		enabled := true
		if pc.Enabled != nil {
			enabled = *pc.Enabled
		}
		threshold := defaultThreshold
		if pc.ConfidenceThreshold != nil {
			threshold = *pc.ConfidenceThreshold
		}
		out[p] = llm.PointConfig{
			Enabled:             enabled,
			TTL:                 time.Duration(pc.TTLSeconds) * time.Second,
			ConfidenceThreshold: threshold,
			CacheSize:           pc.CacheSize,
		}
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }
