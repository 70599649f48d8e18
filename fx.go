package fedhost

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-fedhost/config"
	"github.com/dep2p/go-fedhost/internal/core/eventbus"
	"github.com/dep2p/go-fedhost/internal/core/federation"
	"github.com/dep2p/go-fedhost/internal/core/metrics"
	"github.com/dep2p/go-fedhost/internal/debug/introspect"
	"github.com/dep2p/go-fedhost/internal/remotes"
	"github.com/dep2p/go-fedhost/internal/util/logger"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置与时钟
//  2. Metrics → EventBus（观测者注入）
//  3. 共享库（事件总线本身 + 用户提供）→ Federation
//  4. 诊断服务（按配置）
//  5. 用户扩展

var fxLogger = logger.Logger("fedhost/fx")

func buildFxApp(o *options, cfg *config.Config, h *Host) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if o.loader != nil && o.builtinRemotes {
		return nil, fmt.Errorf("WithLoader and WithBuiltinRemotes cannot be combined")
	}

	clk := o.clock
	if clk == nil {
		clk = clock.New()
	}

	modules := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(func() clock.Clock { return clk }),

		// ════════════════════════════════════════════════════════════════════
		// 2. 指标与事件总线
		// ════════════════════════════════════════════════════════════════════
		metrics.Module(),
		eventbus.Module(),

		// ════════════════════════════════════════════════════════════════════
		// 3. 远程解析
		// ════════════════════════════════════════════════════════════════════
		fx.Provide(fx.Annotate(shareEventBus, fx.ResultTags(`group:"shared"`))),
		federation.Module(),
	}

	for _, sp := range o.shared {
		sp := sp
		modules = append(modules, fx.Provide(fx.Annotate(
			func() federation.SharedProvision { return sp },
			fx.ResultTags(`group:"shared"`),
		)))
	}
	if o.errorReporter != nil {
		modules = append(modules, fx.Provide(func() pkgif.ErrorReporter { return o.errorReporter }))
	}
	if o.fetcher != nil {
		modules = append(modules, fx.Provide(func() pkgif.ManifestFetcher { return o.fetcher }))
	}
	switch {
	case o.loader != nil:
		modules = append(modules, fx.Provide(func() pkgif.ContainerLoader { return o.loader }))
	case o.builtinRemotes:
		modules = append(modules, fx.Provide(builtinLoader))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 诊断服务（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if cfg.Diagnostics.Enabled {
		modules = append(modules, introspect.Module())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 6. Host 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectHostComponents(h)))

	// ════════════════════════════════════════════════════════════════════════
	// 7. Fx 日志
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.WithLogger(fxEventLogger(o.verboseFx)))

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// fxEventLogger 默认丢弃 Fx 事件，避免干扰用户日志
func fxEventLogger(verbose bool) func() fxevent.Logger {
	return func() fxevent.Logger {
		if !verbose {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}
		zl, err := zap.NewDevelopment()
		if err != nil {
			fxLogger.Warn("创建 Fx 事件日志失败，改为丢弃", "err", err)
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}
		return &fxevent.ZapLogger{Logger: zl}
	}
}

// shareEventBus 把事件总线作为共享单例提供给所有远程
func shareEventBus(bus pkgif.EventBus) federation.SharedProvision {
	return federation.SharedProvision{
		Name:      remotes.EventBusLibrary,
		Version:   remotes.EventBusVersion,
		Singleton: true,
		Factory:   func() (any, error) { return bus, nil },
	}
}

// builtinLoader 登记内置演示容器的注册表
func builtinLoader(clk clock.Clock) (pkgif.ContainerLoader, error) {
	reg := federation.NewRegistry()
	if err := remotes.Register(reg, remotes.WithClock(clk)); err != nil {
		return nil, err
	}
	fxLogger.Debug("内置远程容器已登记", "remotes", reg.Names())
	return reg, nil
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

// hostInjectParams Host 组件注入参数
type hostInjectParams struct {
	fx.In

	// 核心组件（必需）
	Bus       *eventbus.Bus
	Resolver  *federation.Resolver
	Collector *metrics.Collector

	// 可选组件
	IntrospectServer *introspect.Server `optional:"true"`
}

// injectHostComponents 创建 Host 组件注入函数
func injectHostComponents(h *Host) interface{} {
	return func(params hostInjectParams) {
		h.bus = params.Bus
		h.resolver = params.Resolver
		h.collector = params.Collector
		h.introspect = params.IntrospectServer
	}
}
