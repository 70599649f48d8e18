package federation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fedhost/config"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

// HostProvider 宿主登记共享库时使用的提供方名
const HostProvider = "host"

// ============================================================================
//                              SharedScope - 共享依赖表
// ============================================================================

// SharedScope 宿主与所有远程共用的共享依赖表
//
// 单例库：第一次协商激活最先登记的版本，之后的协商只检查版本范围，
// 从不替换已激活的实例。非单例库：每次协商选择满足范围的最高版本。
// 实例在第一次需要时求值，只求值一次。
//
// 构造后为空，生命周期与所属 Resolver 相同。
type SharedScope struct {
	mu   sync.Mutex
	libs map[string]*library

	policy   string
	clock    clock.Clock
	observer pkgif.FederationObserver
}

type library struct {
	name      string
	singleton bool
	providers []*provider // 按登记顺序

	active      *provider
	activatedAt time.Time
}

type provider struct {
	version string
	from    string

	mu       sync.Mutex
	factory  pkgif.Factory
	loaded   bool
	instance any
}

// ScopeOption SharedScope 选项
type ScopeOption func(*SharedScope)

// WithVersionPolicy 设置冲突策略（config.VersionPolicyStrict / VersionPolicyWarn）
func WithVersionPolicy(policy string) ScopeOption {
	return func(s *SharedScope) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// WithScopeClock 设置时钟
func WithScopeClock(c clock.Clock) ScopeOption {
	return func(s *SharedScope) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithScopeObserver 设置观测者
func WithScopeObserver(o pkgif.FederationObserver) ScopeOption {
	return func(s *SharedScope) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewSharedScope 创建空的共享依赖表
func NewSharedScope(opts ...ScopeOption) *SharedScope {
	s := &SharedScope{
		libs:     make(map[string]*library),
		policy:   config.VersionPolicyStrict,
		clock:    clock.New(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provide 登记 from 提供的共享库版本
//
// 同一版本已登记时为空操作；若之前的登记没有工厂（只来自清单声明），则补上工厂。
// 任一提供方声明 singleton 即视为单例库。
func (s *SharedScope) Provide(from, name, version string, singleton bool, factory pkgif.Factory) error {
	if name == "" {
		return fmt.Errorf("shared: empty library name")
	}
	if !ValidVersion(version) {
		return fmt.Errorf("shared %s: invalid version %q", name, version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lib, ok := s.libs[name]
	if !ok {
		lib = &library{name: name}
		s.libs[name] = lib
	}
	if singleton && !lib.singleton {
		lib.singleton = true
	}

	for _, p := range lib.providers {
		if CompareVersions(p.version, version) != 0 {
			continue
		}
		p.mu.Lock()
		if p.factory == nil && factory != nil {
			p.factory = factory
		}
		p.mu.Unlock()
		return nil
	}

	lib.providers = append(lib.providers, &provider{
		version: version,
		from:    from,
		factory: factory,
	})
	log.Debug("共享库已登记", "library", name, "version", version, "from", from, "singleton", lib.singleton)
	return nil
}

// Negotiate 为 requester 协商共享库实例
//
// 版本不兼容时：strict 策略返回 *VersionConflictError；
// warn 策略记录警告并返回已激活（或最高）版本的实例。
// 选中的版本只来自清单声明、没有工厂时返回 ErrNoProvider。
func (s *SharedScope) Negotiate(requester, name, requiredRange string) (any, error) {
	p, err := s.resolve(requester, name, requiredRange)
	if err != nil {
		return nil, err
	}
	instance, err := p.get()
	if err != nil {
		return nil, fmt.Errorf("shared %s@%s from %s: %w", name, p.version, p.from, err)
	}
	return instance, nil
}

// Check 只做版本协商，不求值实例
//
// 远程清单声明的共享库在容器加载前用它检查兼容性。
func (s *SharedScope) Check(requester, name, requiredRange string) error {
	_, err := s.resolve(requester, name, requiredRange)
	return err
}

// resolve 选择提供者并按策略处理版本冲突
func (s *SharedScope) resolve(requester, name, requiredRange string) (*provider, error) {
	rng, err := ParseRange(requiredRange)
	if err != nil {
		return nil, err
	}

	p, conflict, err := s.choose(requester, name, rng)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		s.observer.VersionConflict(name)
		if s.policy != config.VersionPolicyWarn {
			log.Warn("共享库版本冲突", "library", name, "requester", requester,
				"required", conflict.Required, "active", conflict.Active)
			return nil, conflict
		}
		log.Warn("共享库版本冲突，继续使用已激活版本", "library", name, "requester", requester,
			"required", conflict.Required, "active", conflict.Active)
	}
	return p, nil
}

// choose 在锁内选择提供者
//
// 有工厂（或已有实例）的版本优先于只有清单声明的版本。
func (s *SharedScope) choose(requester, name string, rng Range) (*provider, *VersionConflictError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lib, ok := s.libs[name]
	if !ok || len(lib.providers) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoProvider, name)
	}

	if lib.singleton {
		switch {
		case lib.active == nil:
			lib.active = lib.firstBacked(nil)
			if lib.active == nil {
				lib.active = lib.providers[0]
			}
			lib.activatedAt = s.clock.Now()
			log.Info("共享单例已激活", "library", name, "version", lib.active.version,
				"provider", lib.active.from, "requester", requester)
		case !lib.active.backed():
			// 激活的版本还没有实例，可以改用之后登记的、有工厂的版本
			if p := lib.firstBacked(&rng); p != nil {
				log.Info("共享单例改用有工厂的版本", "library", name,
					"from", lib.active.version, "to", p.version, "provider", p.from)
				lib.active = p
				lib.activatedAt = s.clock.Now()
			}
		}
		if rng.Match(lib.active.version) {
			return lib.active, nil, nil
		}
		return lib.active, &VersionConflictError{
			Library:   name,
			Active:    lib.active.version,
			Required:  rng.String(),
			Requester: requester,
		}, nil
	}

	var backed, declared, highest *provider
	for _, p := range lib.providers {
		if highest == nil || CompareVersions(p.version, highest.version) > 0 {
			highest = p
		}
		if !rng.Match(p.version) {
			continue
		}
		if p.backed() {
			if backed == nil || CompareVersions(p.version, backed.version) > 0 {
				backed = p
			}
		} else if declared == nil || CompareVersions(p.version, declared.version) > 0 {
			declared = p
		}
	}
	switch {
	case backed != nil:
		return backed, nil, nil
	case declared != nil:
		return declared, nil, nil
	}
	return highest, &VersionConflictError{
		Library:   name,
		Active:    highest.version,
		Required:  rng.String(),
		Requester: requester,
	}, nil
}

// firstBacked 返回最先登记的、有工厂且满足范围的提供者；rng 为空时不检查范围
func (l *library) firstBacked(rng *Range) *provider {
	for _, p := range l.providers {
		if p.backed() && (rng == nil || rng.Match(p.version)) {
			return p
		}
	}
	return nil
}

// backed 能否给出实例
func (p *provider) backed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded || p.factory != nil
}

// get 求值一次；失败不缓存
func (p *provider) get() (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return p.instance, nil
	}
	if p.factory == nil {
		return nil, errDeclaredOnly
	}
	v, err := p.factory()
	if err != nil {
		return nil, err
	}
	p.instance, p.loaded = v, true
	return v, nil
}

// Active 返回共享库当前的记录
//
// 单例库返回已激活的版本；未激活或非单例时返回最高登记版本。
func (s *SharedScope) Active(name string) (types.SharedRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lib, ok := s.libs[name]
	if !ok {
		return types.SharedRecord{}, false
	}
	return lib.record(), true
}

// Records 返回全部共享库记录，按库名排序
func (s *SharedScope) Records() []types.SharedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.SharedRecord, 0, len(s.libs))
	for _, lib := range s.libs {
		out = append(out, lib.record())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (l *library) record() types.SharedRecord {
	rec := types.SharedRecord{
		Name:      l.name,
		Singleton: l.singleton,
	}
	for _, p := range l.providers {
		rec.Providers = append(rec.Providers, p.version+"@"+p.from)
	}

	p := l.active
	if p != nil {
		rec.ActivatedAt = l.activatedAt
	} else {
		for _, cur := range l.providers {
			if p == nil || CompareVersions(cur.version, p.version) > 0 {
				p = cur
			}
		}
	}
	if p != nil {
		rec.Version = p.version
		rec.Provider = p.from
	}
	return rec
}

// For 返回绑定了调用方身份的作用域，交给容器 Init 使用
func (s *SharedScope) For(requester string) pkgif.ShareScope {
	return boundScope{scope: s, requester: requester}
}

type boundScope struct {
	scope     *SharedScope
	requester string
}

func (b boundScope) Provide(library, version string, singleton bool, factory pkgif.Factory) error {
	return b.scope.Provide(b.requester, library, version, singleton, factory)
}

func (b boundScope) Negotiate(library, requiredRange string) (any, error) {
	return b.scope.Negotiate(b.requester, library, requiredRange)
}
