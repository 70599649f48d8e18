package introspect

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-fedhost/config"
	"github.com/dep2p/go-fedhost/internal/core/eventbus"
	"github.com/dep2p/go-fedhost/internal/core/federation"
	"github.com/dep2p/go-fedhost/internal/core/metrics"
)

// Module 返回诊断服务 Fx 模块
func Module() fx.Option {
	return fx.Module("introspect",
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// IntrospectParams 诊断服务依赖参数
type IntrospectParams struct {
	fx.In

	UnifiedCfg *config.Config       `optional:"true"`
	Bus        *eventbus.Bus        `optional:"true"`
	Resolver   *federation.Resolver `optional:"true"`
	Collector  *metrics.Collector   `optional:"true"`
	Clock      clock.Clock          `optional:"true"`
}

// IntrospectOutput 诊断服务输出
type IntrospectOutput struct {
	fx.Out

	Server *Server `optional:"true"`
}

// ConfigFromUnified 从统一配置创建诊断服务配置，未启用时返回 nil
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil || !cfg.Diagnostics.Enabled {
		return nil
	}
	addr := cfg.Diagnostics.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Config{
		Addr:         addr,
		EnableStream: cfg.Diagnostics.EnableStream,
	}
}

// NewFromParams 从参数创建诊断服务
func NewFromParams(params IntrospectParams) IntrospectOutput {
	cfg := ConfigFromUnified(params.UnifiedCfg)
	if cfg == nil {
		return IntrospectOutput{} // 禁用时返回空输出
	}

	cfg.Bus = params.Bus
	cfg.Resolver = params.Resolver
	cfg.Collector = params.Collector
	cfg.Clock = params.Clock

	return IntrospectOutput{
		Server: New(*cfg),
	}
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return // 禁用时跳过
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return server.Stop()
		},
	})
}
