package app

import (
	"strings"

	"gopkg.in/yaml.v3"

	brcfg "sibyl/internal/config"
)

// newStartupSummary 生成启动时打印的配置快照，敏感字段脱敏。
// 输出 YAML 方便和配置文件逐行对照。
func newStartupSummary(cfg *brcfg.Config, providerName string) string {
	type pointView struct {
		Enabled             bool    `yaml:"enabled"`
		TTLSeconds          int     `yaml:"ttl_seconds"`
		ConfidenceThreshold float64 `yaml:"confidence_threshold"`
		CacheSize           int     `yaml:"cache_size"`
	}
	type view struct {
		Env          string               `yaml:"env"`
		Provider     string               `yaml:"provider"`
		Model        string               `yaml:"model"`
		APIKey       string               `yaml:"api_key"`
		Temperature  float64              `yaml:"temperature"`
		StrictParse  bool                 `yaml:"strict_parse"`
		Points       map[string]pointView `yaml:"points"`
		DecisionLog  string               `yaml:"decision_log"`
		CostLedger   string               `yaml:"cost_ledger"`
		MetricsAddr  string               `yaml:"metrics_addr,omitempty"`
		RedactAudits bool                 `yaml:"redact_prompts"`
	}

	v := view{
		Env:          cfg.App.Env,
		Provider:     providerName,
		Model:        cfg.Provider.Model,
		APIKey:       maskSecret(cfg.Provider.APIKey),
		Temperature:  *cfg.LLM.Temperature,
		StrictParse:  cfg.LLM.StrictParse,
		Points:       map[string]pointView{},
		DecisionLog:  cfg.Store.DecisionLogPath,
		CostLedger:   cfg.Store.CostLedgerPath,
		RedactAudits: cfg.Store.RedactPrompts,
	}
	if cfg.Metrics.Enabled {
		v.MetricsAddr = cfg.Metrics.HTTPAddr
	}
	for point, pc := range cfg.PointConfigs() {
		v.Points[string(point)] = pointView{
			Enabled:             pc.Enabled,
			TTLSeconds:          int(pc.TTL.Seconds()),
			ConfidenceThreshold: pc.ConfidenceThreshold,
			CacheSize:           pc.CacheSize,
		}
	}

	out, err := yaml.Marshal(v)
	if err != nil {
		return "(配置快照生成失败)"
	}
	return strings.TrimRight(string(out), "\n")
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
