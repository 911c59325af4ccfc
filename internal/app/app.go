package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	brcfg "sibyl/internal/config"
	"sibyl/internal/llm"
	"sibyl/internal/logger"
	"sibyl/internal/prompt"
	"sibyl/internal/store/costledger"
	"sibyl/internal/store/decisionlog"
	opshttp "sibyl/internal/transport/http/ops"
)

// App 持有装配完成的全部组件，Run 阻塞到 ctx 取消。
type App struct {
	cfg     *brcfg.Config
	engine  *llm.Engine
	prompts *prompt.Manager
	logs    *decisionlog.Store
	ledger  *costledger.Store
	opsHTTP *opshttp.Server
	flush   *statsFlushWorker

	// Summary 是启动时打印的脱敏配置快照。
	Summary string
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *brcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Engine 暴露决策引擎给嵌入方（策略循环直接调用 Decide）。
func (a *App) Engine() *llm.Engine { return a.engine }

// Run 启动后台组件并阻塞直至 ctx 取消或某个组件出错。
func (a *App) Run(ctx context.Context) error {
	logger.Infof("启动配置:\n%s", a.Summary)

	g, ctx := errgroup.WithContext(ctx)

	if a.opsHTTP != nil {
		g.Go(func() error {
			return a.opsHTTP.Start(ctx)
		})
	}
	if a.flush != nil {
		g.Go(func() error {
			a.flush.Run(ctx)
			return nil
		})
	}

	err := g.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if a.prompts != nil {
		a.prompts.Close()
	}
	if a.logs != nil {
		if err := a.logs.Close(); err != nil {
			logger.Warnf("关闭决策日志存储失败: %v", err)
		}
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			logger.Warnf("关闭成本台账失败: %v", err)
		}
	}
}
