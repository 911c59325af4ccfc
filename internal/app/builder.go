package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	brcfg "sibyl/internal/config"
	"sibyl/internal/gateway/provider"
	"sibyl/internal/llm"
	"sibyl/internal/logger"
	"sibyl/internal/metrics"
	"sibyl/internal/prompt"
	"sibyl/internal/store/costledger"
	"sibyl/internal/store/decisionlog"
	opshttp "sibyl/internal/transport/http/ops"
)

// AppBuilder 按依赖顺序装配应用组件。
type AppBuilder struct {
	cfg *brcfg.Config
}

func NewAppBuilder(cfg *brcfg.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	cfg := b.cfg

	prov, err := buildProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("初始化 provider 失败: %w", err)
	}

	prompts, err := prompt.NewManager(cfg.Prompt.Dir)
	if err != nil {
		return nil, fmt.Errorf("初始化提示词管理器失败: %w", err)
	}

	var schemas *llm.SchemaRegistry
	if path := strings.TrimSpace(cfg.LLM.SchemasPath); path != "" {
		schemas, err = llm.NewSchemaRegistry(path)
		if err != nil {
			return nil, fmt.Errorf("初始化参数 schema 失败: %w", err)
		}
	}

	var logs *decisionlog.Store
	if path := strings.TrimSpace(cfg.Store.DecisionLogPath); path != "" {
		logs, err = decisionlog.New(path, cfg.Store.RedactPrompts)
		if err != nil {
			return nil, fmt.Errorf("初始化决策日志存储失败: %w", err)
		}
		logger.Infof("✓ 决策审计日志写入 %s", path)
	}

	var ledger *costledger.Store
	if path := strings.TrimSpace(cfg.Store.CostLedgerPath); path != "" {
		ledger, err = costledger.New(path)
		if err != nil {
			return nil, fmt.Errorf("初始化成本台账失败: %w", err)
		}
		logger.Infof("✓ 成本台账写入 %s", path)
	}

	parser := llm.NewParser()
	parser.Strict = cfg.LLM.StrictParse

	opts := llm.EngineOptions{
		Provider:    prov,
		Prompts:     prompts,
		Parser:      parser,
		Schemas:     schemas,
		Points:      cfg.PointConfigs(),
		Temperature: *cfg.LLM.Temperature,
	}
	if logs != nil {
		opts.Audit = logs
	}
	if ledger != nil {
		opts.Costs = ledger
	}
	engine := llm.NewEngine(opts)

	app := &App{
		cfg:     cfg,
		engine:  engine,
		prompts: prompts,
		logs:    logs,
		ledger:  ledger,
		Summary: newStartupSummary(cfg, prov.Name()),
	}

	if cfg.Metrics.Enabled {
		collectors := []metrics.Collector{
			&metrics.EngineStatsCollector{Snapshot: engine.Stats},
		}
		if logs != nil {
			collectors = append(collectors, &metrics.DecisionLogCollector{Logs: logs})
		}
		if ledger != nil {
			collectors = append(collectors, &metrics.CostLedgerCollector{Ledger: ledger})
		}
		server, err := opshttp.NewServer(opshttp.ServerConfig{
			Addr:       cfg.Metrics.HTTPAddr,
			Collectors: collectors,
			Logs:       logs,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化 ops HTTP 服务失败: %w", err)
		}
		app.opsHTTP = server
		app.flush = newStatsFlushWorker(engine.Stats,
			time.Duration(cfg.Metrics.FlushIntervalSeconds)*time.Second)
	}

	return app, nil
}

func buildProvider(cfg brcfg.ProviderConfig) (provider.CompletionProvider, error) {
	return provider.New(provider.Config{
		Kind:         provider.Kind(cfg.Kind),
		Name:         cfg.Name,
		APIURL:       cfg.APIURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Headers:      cfg.Headers,
		RequestBody:  cfg.RequestBody,
		ResponsePath: cfg.ResponsePath,
		EnsureJSON:   cfg.EnsureJSON,
		UsagePath:    cfg.UsagePath,
		UsageFields:  cfg.UsageFields,
		Cost: provider.CostRates{
			InputPerMTok:         cfg.Cost.InputPerMTok,
			OutputPerMTok:        cfg.Cost.OutputPerMTok,
			CacheReadPerMTok:     cfg.Cost.CacheReadPerMTok,
			CacheCreationPerMTok: cfg.Cost.CacheCreationPerMTok,
		},
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
}
