// Package interfaces 定义 fedhost 公共接口
//
// 本文件定义远程解析、共享依赖协商与容器加载相关接口。
package interfaces

import (
	"context"
	"time"

	"github.com/dep2p/go-fedhost/pkg/types"
)

// ManifestFetcher 抓取远程清单
//
// 实现通常走网络（HTTP），测试中替换为内存实现。
type ManifestFetcher interface {
	Fetch(ctx context.Context, remote, entryURL string) ([]byte, error)
}

// Factory 暴露模块的工厂，求值结果即模块导出
type Factory func() (any, error)

// ShareScope 容器初始化时拿到的共享作用域
//
// 作用域已绑定调用方身份（宿主或某个远程）。
type ShareScope interface {
	// Provide 登记本方提供的共享库版本，同一版本重复登记为空操作
	Provide(library, version string, singleton bool, factory Factory) error

	// Negotiate 按版本范围取得共享库的活跃实例
	Negotiate(library, requiredRange string) (any, error)
}

// Container 远程容器：先 Init 注入共享作用域，再按路径取工厂
type Container interface {
	Init(scope ShareScope) error
	Get(path string) (Factory, error)
}

// ContainerLoader 把远程描述变成可用的容器
//
// 对应浏览器端打包器的 chunk 加载运行时，这里作为注入能力。
type ContainerLoader interface {
	LoadContainer(ctx context.Context, desc *types.RemoteDescriptor) (Container, error)
}

// Resolver 远程解析表
type Resolver interface {
	// ResolveRemote 抓取（并缓存）远程清单
	ResolveRemote(ctx context.Context, remote string) (*types.RemoteDescriptor, error)

	// LoadExposedModule 加载远程暴露的模块并返回导出
	LoadExposedModule(ctx context.Context, remote, path string) (any, error)

	// Import 以 "<remote>/<path>" 形式加载
	Import(ctx context.Context, ref string) (any, error)

	// Snapshot 返回所有远程的状态快照
	Snapshot() []types.RemoteStatus
}

// FederationObserver 远程解析观测接口（指标）
type FederationObserver interface {
	RemoteFetched(remote string, err error, elapsed time.Duration)
	ModuleLoaded(remote, path string, err error, elapsed time.Duration)
	VersionConflict(library string)
}
