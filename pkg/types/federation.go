package types

import (
	"slices"
	"strings"
	"time"
)

// ============================================================================
//                              ModuleRef - 远程模块引用
// ============================================================================

// ModuleRef 符号化的远程模块引用 "<remoteName>/<exposedPath>"
type ModuleRef struct {
	Remote string
	Path   string
}

// String 返回 "<remote>/<path>" 形式
func (r ModuleRef) String() string {
	return r.Remote + "/" + r.Path
}

// ParseModuleRef 解析 "<remoteName>/<exposedPath>"
//
// 暴露路径前导的 "./" 会被去掉，"remoteApp1/./Button" 与 "remoteApp1/Button" 等价。
// 远程名或路径为空时返回 ErrInvalidModuleRef。
func ParseModuleRef(s string) (ModuleRef, error) {
	remote, path, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		return ModuleRef{}, ErrInvalidModuleRef
	}
	path = NormalizeExposedPath(path)
	if remote == "" || path == "" {
		return ModuleRef{}, ErrInvalidModuleRef
	}
	return ModuleRef{Remote: remote, Path: path}, nil
}

// NormalizeExposedPath 去掉暴露路径的 "./" 与首尾 "/"
func NormalizeExposedPath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "./")
	return strings.Trim(path, "/")
}

// ============================================================================
//                              RemoteDescriptor - 远程描述
// ============================================================================

// SharedSpec 清单中声明的一个共享依赖
type SharedSpec struct {
	// Version 远程自身携带的版本
	Version string `json:"version"`

	// Singleton 全局只允许一个活跃实例
	Singleton bool `json:"singleton,omitempty"`

	// RequiredVersion 远程要求的版本范围，为空时按 "^Version" 处理
	RequiredVersion string `json:"requiredVersion,omitempty"`
}

// RemoteDescriptor 一个独立部署的远程片段
//
// 首次引用时抓取，进程生命周期内缓存，不会被淘汰。
type RemoteDescriptor struct {
	Name     string                `json:"name"`
	EntryURL string                `json:"entry"`
	Exposes  []string              `json:"exposes"`
	Shared   map[string]SharedSpec `json:"shared,omitempty"`

	// FetchedAt 抓取完成时间
	FetchedAt time.Time `json:"-"`
}

// HasExposed 判断路径是否被暴露
func (d *RemoteDescriptor) HasExposed(path string) bool {
	return slices.Contains(d.Exposes, NormalizeExposedPath(path))
}

// Clone 返回深拷贝
func (d *RemoteDescriptor) Clone() *RemoteDescriptor {
	if d == nil {
		return nil
	}
	c := *d
	c.Exposes = slices.Clone(d.Exposes)
	if d.Shared != nil {
		c.Shared = make(map[string]SharedSpec, len(d.Shared))
		for k, v := range d.Shared {
			c.Shared[k] = v
		}
	}
	return &c
}

// ============================================================================
//                              SharedRecord - 共享依赖记录
// ============================================================================

// SharedRecord 一个共享库当前的活跃实例信息
type SharedRecord struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Singleton bool   `json:"singleton"`

	// Provider 提供该版本的一方（"host" 或远程名）
	Provider string `json:"provider"`

	// Providers 已登记的全部版本（按登记顺序）
	Providers []string `json:"providers,omitempty"`

	ActivatedAt time.Time `json:"activatedAt"`
}

// ============================================================================
//                              加载状态
// ============================================================================

// LoadState 远程或暴露模块的加载状态
//
//	Unresolved → Resolving → Resolved → Loading(path) → Loaded(path)
//	任意进行中状态 → Failed（可重试）
type LoadState int

const (
	StateUnresolved LoadState = iota
	StateResolving
	StateResolved
	StateLoading
	StateLoaded
	StateFailed
)

// String 返回状态名
func (s LoadState) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ModuleStatus 单个暴露模块的状态
type ModuleStatus struct {
	Path      string    `json:"path"`
	State     LoadState `json:"state"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RemoteStatus 单个远程的状态快照
type RemoteStatus struct {
	Name      string         `json:"name"`
	EntryURL  string         `json:"entry"`
	State     LoadState      `json:"state"`
	Error     string         `json:"error,omitempty"`
	Attempts  int            `json:"attempts"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Modules   []ModuleStatus `json:"modules,omitempty"`
}
