package federation

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-fedhost/config"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 远程解析依赖参数
type Params struct {
	fx.In

	Config   *config.Config           `optional:"true"`
	Clock    clock.Clock              `optional:"true"`
	Fetcher  pkgif.ManifestFetcher    `optional:"true"`
	Loader   pkgif.ContainerLoader    `optional:"true"`
	Observer pkgif.FederationObserver `optional:"true"`

	// Shared 宿主提供的共享库，value group 不能设置 optional
	Shared []SharedProvision `group:"shared"`
}

// Result 模块输出结果
type Result struct {
	fx.Out

	Resolver    *Resolver
	Interface   pkgif.Resolver
	SharedScope *SharedScope
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("federation",
		fx.Provide(ProvideResolver),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideResolver 按配置创建解析表并登记宿主共享库
//
// 未注入抓取器时使用 HTTPFetcher；未注入加载器时使用空的 Registry。
func ProvideResolver(p Params) (Result, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}

	fetcher := p.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(cfg.Federation)
	}
	loader := p.Loader
	if loader == nil {
		loader = NewRegistry()
	}

	scope := NewSharedScope(
		WithVersionPolicy(cfg.Federation.VersionPolicy),
		WithScopeClock(p.Clock),
		WithScopeObserver(p.Observer),
	)

	var err error
	for _, sp := range p.Shared {
		err = multierr.Append(err, scope.Provide(HostProvider, sp.Name, sp.Version, sp.Singleton, sp.Factory))
	}
	// 配置中声明、没有工厂的共享库只参与版本协商
	for name, sc := range cfg.Shared {
		err = multierr.Append(err, scope.Provide(HostProvider, name, sc.Version, sc.Singleton, nil))
	}
	if err != nil {
		return Result{}, err
	}

	r := NewResolver(cfg.RemoteTable(),
		WithFetcher(fetcher),
		WithLoader(loader),
		WithSharedScope(scope),
		WithClock(p.Clock),
		WithTimeout(cfg.Federation.FetchTimeout.Duration()),
		WithObserver(p.Observer),
	)
	return Result{Resolver: r, Interface: r, SharedScope: scope}, nil
}

type lifecycleInput struct {
	fx.In

	LC       fx.Lifecycle
	Resolver *Resolver
}

// registerLifecycle 停止时关闭默认抓取器的空闲连接
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			log.Info("远程解析表就绪", "remotes", input.Resolver.Remotes())
			return nil
		},
		OnStop: func(_ context.Context) error {
			if f, ok := input.Resolver.fetcher.(*HTTPFetcher); ok {
				return f.Close()
			}
			return nil
		},
	})
}
