package eventbus

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-fedhost/config"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 事件总线依赖参数
type Params struct {
	fx.In

	Config   *config.Config      `optional:"true"`
	Clock    clock.Clock         `optional:"true"`
	Observer pkgif.BusObserver   `optional:"true"`
	Reporter pkgif.ErrorReporter `optional:"true"`
}

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Bus      *Bus
	EventBus pkgif.EventBus
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideEventBus 按配置创建事件总线
func ProvideEventBus(p Params) Result {
	cfg := config.DefaultEventBusConfig()
	if p.Config != nil {
		cfg = p.Config.EventBus
	}

	opts := []Option{
		WithDevLogging(cfg.DevLogging),
		WithHistory(cfg.HistorySize),
		WithClock(p.Clock),
	}
	if p.Observer != nil {
		opts = append(opts, WithObserver(p.Observer))
	}
	if p.Reporter != nil {
		opts = append(opts, WithErrorReporter(p.Reporter))
	}

	bus := NewBus(opts...)
	return Result{Bus: bus, EventBus: bus}
}

type lifecycleInput struct {
	fx.In

	LC  fx.Lifecycle
	Bus *Bus
}

// registerLifecycle 停止时清空全部订阅
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			input.Bus.Clear()
			log.Debug("事件总线已清空")
			return nil
		},
	})
}
