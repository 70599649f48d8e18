package federation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-fedhost/internal/util/logger"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

var log = logger.Logger("federation")

// DefaultFetchTimeout 未配置时单次加载的超时
const DefaultFetchTimeout = 10 * time.Second

// ============================================================================
//                              Resolver - 远程解析表
// ============================================================================

// Resolver 把 "<remote>/<path>" 解析为模块导出
//
// 清单、容器与模块导出在首次引用时加载并缓存，进程生命周期内不淘汰；
// 失败不缓存，之后的调用会重新尝试。同一键的并发请求共享一次加载（singleflight）。
//
// 加载在与调用方分离的 context 上进行：调用方放弃等待不会中断抓取，
// 结果仍写入缓存供之后的调用使用。
type Resolver struct {
	fetcher  pkgif.ManifestFetcher
	loader   pkgif.ContainerLoader
	scope    *SharedScope
	clock    clock.Clock
	timeout  time.Duration
	observer pkgif.FederationObserver

	group singleflight.Group

	mu          sync.RWMutex
	entries     map[string]string
	descriptors map[string]*types.RemoteDescriptor
	containers  map[string]pkgif.Container
	modules     map[string]any
	states      map[string]*remoteState
}

var _ pkgif.Resolver = (*Resolver)(nil)

type remoteState struct {
	status  types.RemoteStatus
	modules map[string]*types.ModuleStatus
}

// Option Resolver 选项
type Option func(*Resolver)

// WithFetcher 设置清单抓取器
func WithFetcher(f pkgif.ManifestFetcher) Option {
	return func(r *Resolver) { r.fetcher = f }
}

// WithLoader 设置容器加载器
func WithLoader(l pkgif.ContainerLoader) Option {
	return func(r *Resolver) { r.loader = l }
}

// WithSharedScope 设置共享依赖表
func WithSharedScope(s *SharedScope) Option {
	return func(r *Resolver) { r.scope = s }
}

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(r *Resolver) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithTimeout 设置单次加载超时
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithObserver 设置观测者
func WithObserver(o pkgif.FederationObserver) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewResolver 创建解析表
//
// remotes 为 远程名 → 清单地址。未设置抓取器与加载器时，解析会以 ErrRemoteUnavailable 失败。
func NewResolver(remotes map[string]string, opts ...Option) *Resolver {
	r := &Resolver{
		clock:       clock.New(),
		timeout:     DefaultFetchTimeout,
		observer:    nopObserver{},
		entries:     make(map[string]string, len(remotes)),
		descriptors: make(map[string]*types.RemoteDescriptor),
		containers:  make(map[string]pkgif.Container),
		modules:     make(map[string]any),
		states:      make(map[string]*remoteState),
	}
	for name, entry := range remotes {
		r.entries[name] = entry
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scope == nil {
		r.scope = NewSharedScope(WithScopeClock(r.clock), WithScopeObserver(r.observer))
	}
	return r
}

// AddRemote 运行时加入远程；已存在且地址不同时返回错误
func (r *Resolver) AddRemote(name, entry string) error {
	if name == "" || entry == "" {
		return fmt.Errorf("add remote: name and entry are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.entries[name]; ok {
		if cur == entry {
			return nil
		}
		return fmt.Errorf("add remote %s: already registered with %s", name, cur)
	}
	r.entries[name] = entry
	return nil
}

// Scope 返回共享依赖表
func (r *Resolver) Scope() *SharedScope { return r.scope }

// Remotes 返回远程表中的全部名字（已排序）
func (r *Resolver) Remotes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ============================================================================
//                              解析远程
// ============================================================================

// ResolveRemote 抓取并缓存远程清单
//
// 返回缓存描述的副本。抓取、解析失败或超时返回 *RemoteError（ErrRemoteUnavailable）。
// 调用方 ctx 结束只影响本次等待，不影响进行中的抓取。
func (r *Resolver) ResolveRemote(ctx context.Context, name string) (*types.RemoteDescriptor, error) {
	if desc, ok := r.descriptor(name); ok {
		return desc.Clone(), nil
	}

	ch := r.group.DoChan("remote:"+name, func() (any, error) {
		return r.fetchRemote(r.detach(ctx), name)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.RemoteDescriptor).Clone(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("resolve %s: %w", name, ctx.Err())
	}
}

func (r *Resolver) fetchRemote(ctx context.Context, name string) (*types.RemoteDescriptor, error) {
	// 等待期间可能已被其他 flight 写入
	if desc, ok := r.descriptor(name); ok {
		return desc, nil
	}

	entry, ok := r.entry(name)
	if !ok {
		return nil, &RemoteError{Remote: name, Op: "lookup", Err: ErrUnknownRemote}
	}

	r.setRemoteState(name, entry, types.StateResolving, nil)

	start := r.clock.Now()
	data, err := r.fetch(ctx, name, entry)
	op := "fetch"
	var desc *types.RemoteDescriptor
	if err == nil {
		op = "parse"
		desc, err = ParseManifest(name, data)
	}
	elapsed := r.clock.Since(start)
	r.observer.RemoteFetched(name, err, elapsed)

	if err != nil {
		rerr := &RemoteError{Remote: name, Op: op, Err: err}
		r.setRemoteState(name, entry, types.StateFailed, rerr)
		log.Warn("远程解析失败", "remote", name, "entry", entry, "op", op, "err", err)
		return nil, rerr
	}

	desc.FetchedAt = r.clock.Now()

	r.mu.Lock()
	r.descriptors[name] = desc
	r.mu.Unlock()
	r.setRemoteState(name, entry, types.StateResolved, nil)

	log.Info("远程已解析", "remote", name, "entry", entry,
		"exposes", len(desc.Exposes), "shared", len(desc.Shared), "elapsed", elapsed)
	return desc, nil
}

func (r *Resolver) fetch(ctx context.Context, name, entry string) ([]byte, error) {
	if r.fetcher == nil {
		return nil, errors.New("no manifest fetcher configured")
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.fetcher.Fetch(ctx, name, entry)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ============================================================================
//                              加载暴露模块
// ============================================================================

// Import 以 "<remote>/<path>" 形式加载
func (r *Resolver) Import(ctx context.Context, ref string) (any, error) {
	mref, err := types.ParseModuleRef(ref)
	if err != nil {
		return nil, fmt.Errorf("import %q: %w", ref, err)
	}
	return r.LoadExposedModule(ctx, mref.Remote, mref.Path)
}

// LoadExposedModule 加载远程暴露的模块并返回导出
//
// 步骤：解析远程 → 检查路径已暴露 → 协商清单声明的共享库 →
// 加载容器并 Init（每个远程一次）→ 取工厂并求值（每个键一次）。
func (r *Resolver) LoadExposedModule(ctx context.Context, remote, path string) (any, error) {
	path = types.NormalizeExposedPath(path)
	if remote == "" || path == "" {
		return nil, fmt.Errorf("load %q/%q: %w", remote, path, ErrInvalidRef)
	}

	key := remote + "/" + path
	if v, ok := r.module(key); ok {
		return v, nil
	}

	ch := r.group.DoChan("module:"+key, func() (any, error) {
		return r.loadModule(r.detach(ctx), remote, path)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("load %s: %w", key, ctx.Err())
	}
}

func (r *Resolver) loadModule(ctx context.Context, remote, path string) (any, error) {
	key := remote + "/" + path
	if v, ok := r.module(key); ok {
		return v, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := r.clock.Now()
	export, err := r.load(ctx, remote, path)
	elapsed := r.clock.Since(start)
	r.observer.ModuleLoaded(remote, path, err, elapsed)

	if err != nil {
		r.setModuleState(remote, path, types.StateFailed, err)
		log.Warn("模块加载失败", "module", key, "err", err)
		return nil, err
	}

	r.mu.Lock()
	r.modules[key] = export
	r.mu.Unlock()
	r.setModuleState(remote, path, types.StateLoaded, nil)

	log.Info("模块已加载", "module", key, "elapsed", elapsed)
	return export, nil
}

func (r *Resolver) load(ctx context.Context, remote, path string) (any, error) {
	desc, err := r.ResolveRemote(ctx, remote)
	if err != nil {
		return nil, remoteErr(remote, path, "resolve", err)
	}

	if !desc.HasExposed(path) {
		return nil, &RemoteError{Remote: remote, Path: path, Op: "expose",
			Err: fmt.Errorf("%w: %q not exposed", ErrModuleNotExposed, path)}
	}

	r.setModuleState(remote, path, types.StateLoading, nil)

	if err := r.negotiate(desc); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("load %s/%s: %w", remote, path, err)
		}
		return nil, remoteErr(remote, path, "shared", err)
	}

	container, err := r.container(ctx, desc)
	if err != nil {
		return nil, remoteErr(remote, path, "container", err)
	}

	factory, err := container.Get(path)
	if err != nil {
		return nil, remoteErr(remote, path, "get", err)
	}

	export, err := evaluate(factory)
	if err != nil {
		return nil, remoteErr(remote, path, "factory", err)
	}
	return export, nil
}

// negotiate 登记远程自带的共享版本，再检查每个共享库的版本范围
//
// 清单只声明版本，实例由容器 Init 时提供的工厂给出，这里不求值。
func (r *Resolver) negotiate(desc *types.RemoteDescriptor) error {
	libs := make([]string, 0, len(desc.Shared))
	for lib := range desc.Shared {
		libs = append(libs, lib)
	}
	sort.Strings(libs)

	for _, lib := range libs {
		spec := desc.Shared[lib]
		if spec.Version != "" {
			if err := r.scope.Provide(desc.Name, lib, spec.Version, spec.Singleton, nil); err != nil {
				return err
			}
		}
	}

	for _, lib := range libs {
		if err := r.scope.Check(desc.Name, lib, requiredRange(desc.Shared[lib])); err != nil {
			return err
		}
	}
	return nil
}

// requiredRange 未声明 requiredVersion 时按 "^version"
func requiredRange(spec types.SharedSpec) string {
	switch {
	case spec.RequiredVersion != "":
		return spec.RequiredVersion
	case spec.Version != "":
		return "^" + spec.Version
	default:
		return "*"
	}
}

// container 加载并初始化容器，每个远程一次；失败不缓存
func (r *Resolver) container(ctx context.Context, desc *types.RemoteDescriptor) (pkgif.Container, error) {
	r.mu.RLock()
	c, ok := r.containers[desc.Name]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	v, err, _ := r.group.Do("container:"+desc.Name, func() (any, error) {
		r.mu.RLock()
		c, ok := r.containers[desc.Name]
		r.mu.RUnlock()
		if ok {
			return c, nil
		}

		if r.loader == nil {
			return nil, errors.New("no container loader configured")
		}
		c, err := r.loader.LoadContainer(ctx, desc)
		if err != nil {
			return nil, err
		}
		if err := c.Init(r.scope.For(desc.Name)); err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}

		r.mu.Lock()
		r.containers[desc.Name] = c
		r.mu.Unlock()
		log.Debug("容器已初始化", "remote", desc.Name)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(pkgif.Container), nil
}

// evaluate 调用工厂，panic 视为求值失败
func evaluate(factory pkgif.Factory) (export any, err error) {
	if factory == nil {
		return nil, errors.New("nil factory")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("factory panicked: %v", p)
		}
	}()
	return factory()
}

// ============================================================================
//                              状态
// ============================================================================

// RemoteState 返回单个远程的状态
func (r *Resolver) RemoteState(name string) (types.RemoteStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if st, ok := r.states[name]; ok {
		return st.snapshot(), true
	}
	if entry, ok := r.entries[name]; ok {
		return types.RemoteStatus{Name: name, EntryURL: entry, State: types.StateUnresolved}, true
	}
	return types.RemoteStatus{}, false
}

// Snapshot 返回全部远程（包括未解析的）的状态，按名字排序
func (r *Resolver) Snapshot() []types.RemoteStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.RemoteStatus, 0, len(r.entries))
	for name, entry := range r.entries {
		if st, ok := r.states[name]; ok {
			out = append(out, st.snapshot())
			continue
		}
		out = append(out, types.RemoteStatus{Name: name, EntryURL: entry, State: types.StateUnresolved})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Descriptors 返回已缓存的清单描述副本，按名字排序
func (r *Resolver) Descriptors() []*types.RemoteDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.RemoteDescriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (st *remoteState) snapshot() types.RemoteStatus {
	s := st.status
	s.Modules = make([]types.ModuleStatus, 0, len(st.modules))
	for _, m := range st.modules {
		s.Modules = append(s.Modules, *m)
	}
	sort.Slice(s.Modules, func(i, j int) bool { return s.Modules[i].Path < s.Modules[j].Path })
	return s
}

func (r *Resolver) setRemoteState(name, entry string, state types.LoadState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stateLocked(name)
	st.status.EntryURL = entry
	st.status.State = state
	st.status.UpdatedAt = r.clock.Now()
	st.status.Error = ""
	if err != nil {
		st.status.Error = err.Error()
	}
	if state == types.StateResolving {
		st.status.Attempts++
	}
}

func (r *Resolver) setModuleState(remote, path string, state types.LoadState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stateLocked(remote)
	m, ok := st.modules[path]
	if !ok {
		m = &types.ModuleStatus{Path: path}
		st.modules[path] = m
	}
	m.State = state
	m.UpdatedAt = r.clock.Now()
	m.Error = ""
	if err != nil {
		m.Error = err.Error()
	}
}

func (r *Resolver) stateLocked(name string) *remoteState {
	st, ok := r.states[name]
	if !ok {
		st = &remoteState{
			status:  types.RemoteStatus{Name: name, EntryURL: r.entries[name], State: types.StateUnresolved},
			modules: make(map[string]*types.ModuleStatus),
		}
		r.states[name] = st
	}
	return st
}

// ============================================================================
//                              内部方法
// ============================================================================

func (r *Resolver) descriptor(name string) (*types.RemoteDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

func (r *Resolver) module(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.modules[key]
	return v, ok
}

func (r *Resolver) entry(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// detach 返回不随调用方取消的 context，超时由加载过程自己设置
func (r *Resolver) detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
