package metrics

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Clock clock.Clock `optional:"true"`
}

// Result 模块输出结果
//
// 同一个 Collector 以两个观测接口的身份提供给 eventbus 与 federation 模块。
type Result struct {
	fx.Out

	Collector  *Collector
	Bus        pkgif.BusObserver
	Federation pkgif.FederationObserver
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideCollector),
	)
}

// ProvideCollector 创建收集器，附带运行时指标
func ProvideCollector(p Params) Result {
	c := NewCollector(WithClock(p.Clock), WithRuntimeMetrics())
	return Result{Collector: c, Bus: c, Federation: c}
}
