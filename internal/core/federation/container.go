package federation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

var (
	// ErrContainerNotFound 注册表中没有该远程的容器
	ErrContainerNotFound = errors.New("container not found")

	// ErrModuleNotExposed 容器没有暴露该路径
	ErrModuleNotExposed = errors.New("module not exposed")
)

// ============================================================================
//                              Registry - 进程内容器注册表
// ============================================================================

// Registry 按远程名登记的进程内容器，是默认的 ContainerLoader
//
// 浏览器中容器来自远程入口脚本；这里由各远程包在启动时注册。
type Registry struct {
	mu         sync.RWMutex
	containers map[string]pkgif.Container
}

var _ pkgif.ContainerLoader = (*Registry)(nil)

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{containers: make(map[string]pkgif.Container)}
}

// Register 登记容器，同名重复登记返回错误
func (r *Registry) Register(remote string, c pkgif.Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.containers[remote]; dup {
		return fmt.Errorf("container %q already registered", remote)
	}
	r.containers[remote] = c
	return nil
}

// LoadContainer 实现 ContainerLoader
func (r *Registry) LoadContainer(_ context.Context, desc *types.RemoteDescriptor) (pkgif.Container, error) {
	r.mu.RLock()
	c, ok := r.containers[desc.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, desc.Name)
	}
	return c, nil
}

// Names 返回已登记的远程名
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.containers))
	for name := range r.containers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ============================================================================
//                              StaticContainer
// ============================================================================

// SharedProvision 容器（或宿主）提供的一个共享库
type SharedProvision struct {
	Name      string
	Version   string
	Singleton bool
	Factory   pkgif.Factory
}

// StaticContainer 以内存表实现的容器
//
//	c := federation.NewStaticContainer("remoteApp1").
//	    Share("react", "18.3.1", true, nil).
//	    Expose("Button", func() (any, error) { return NewButton(), nil })
type StaticContainer struct {
	name string

	mu      sync.RWMutex
	shared  []SharedProvision
	modules map[string]pkgif.Factory
	onInit  func(pkgif.ShareScope) error
	scope   pkgif.ShareScope
}

var _ pkgif.Container = (*StaticContainer)(nil)

// NewStaticContainer 创建容器
func NewStaticContainer(name string) *StaticContainer {
	return &StaticContainer{
		name:    name,
		modules: make(map[string]pkgif.Factory),
	}
}

// Expose 暴露模块
func (c *StaticContainer) Expose(path string, f pkgif.Factory) *StaticContainer {
	c.mu.Lock()
	c.modules[types.NormalizeExposedPath(path)] = f
	c.mu.Unlock()
	return c
}

// Share 声明容器自带的共享库版本，Init 时登记到共享作用域
func (c *StaticContainer) Share(name, version string, singleton bool, f pkgif.Factory) *StaticContainer {
	c.mu.Lock()
	c.shared = append(c.shared, SharedProvision{Name: name, Version: version, Singleton: singleton, Factory: f})
	c.mu.Unlock()
	return c
}

// OnInit 设置 Init 完成登记后的回调
func (c *StaticContainer) OnInit(fn func(pkgif.ShareScope) error) *StaticContainer {
	c.mu.Lock()
	c.onInit = fn
	c.mu.Unlock()
	return c
}

// Init 实现 Container：登记共享库并保存作用域
func (c *StaticContainer) Init(scope pkgif.ShareScope) error {
	c.mu.Lock()
	c.scope = scope
	shared := slices.Clone(c.shared)
	onInit := c.onInit
	c.mu.Unlock()

	for _, sp := range shared {
		if err := scope.Provide(sp.Name, sp.Version, sp.Singleton, sp.Factory); err != nil {
			return fmt.Errorf("container %s: %w", c.name, err)
		}
	}
	if onInit != nil {
		return onInit(scope)
	}
	return nil
}

// Get 实现 Container
func (c *StaticContainer) Get(path string) (pkgif.Factory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, ok := c.modules[types.NormalizeExposedPath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrModuleNotExposed, c.name, path)
	}
	return f, nil
}

// Scope 返回 Init 时注入的共享作用域，未初始化时为 nil
func (c *StaticContainer) Scope() pkgif.ShareScope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scope
}

// Name 返回容器名
func (c *StaticContainer) Name() string { return c.name }

// Exposes 返回暴露的路径（已排序）
func (c *StaticContainer) Exposes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	paths := make([]string, 0, len(c.modules))
	for p := range c.modules {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Shared 返回声明的共享库
func (c *StaticContainer) Shared() []SharedProvision {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.shared)
}

// Descriptor 根据容器内容生成远程描述（远程服务端用来产出清单）
func (c *StaticContainer) Descriptor(entryURL string) *types.RemoteDescriptor {
	desc := &types.RemoteDescriptor{
		Name:     c.name,
		EntryURL: entryURL,
		Exposes:  c.Exposes(),
	}
	for _, sp := range c.Shared() {
		if desc.Shared == nil {
			desc.Shared = make(map[string]types.SharedSpec)
		}
		desc.Shared[sp.Name] = types.SharedSpec{Version: sp.Version, Singleton: sp.Singleton}
	}
	return desc
}
