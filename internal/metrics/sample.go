// Package metrics 将各采集器的样本渲染为 Prometheus 文本格式。
package metrics

import "context"

// Sample 单条指标样本。Value 允许 bool/整型/浮点/数值字符串，
// 渲染时统一转为数值，非有限或不可解析的样本被丢弃。
type Sample struct {
	Name        string
	Value       any
	Description string
	Type        string // counter | gauge
	Labels      map[string]string
}

// Collector 返回样本或错误——"数据不可用"是普通返回值而非异常；
// 扇出编排方决定记日志并继续，绝不依赖 panic 传播。
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]Sample, error)
}
