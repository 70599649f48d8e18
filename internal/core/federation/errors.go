package federation

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-fedhost/pkg/types"
)

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrRemoteUnavailable 远程清单抓取、解析或模块加载失败
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrVersionConflict 请求的版本范围与已激活的共享单例不兼容
	ErrVersionConflict = errors.New("shared dependency version conflict")

	// ErrInvalidRef 无效的模块引用
	ErrInvalidRef = types.ErrInvalidModuleRef

	// ErrUnknownRemote 远程表中没有该远程
	ErrUnknownRemote = errors.New("unknown remote")

	// ErrInvalidRange 无法解析的版本范围
	ErrInvalidRange = errors.New("invalid version range")

	// ErrNoProvider 共享库没有任何提供者
	ErrNoProvider = errors.New("no provider for shared library")

	// errDeclaredOnly 选中的版本只有清单声明，没有工厂
	errDeclaredOnly = fmt.Errorf("%w: version declared without factory", ErrNoProvider)
)

// RemoteError 远程不可用的详细信息
//
// errors.Is(err, ErrRemoteUnavailable) 恒为真，底层原因也可以通过 errors.Is/As 取到。
type RemoteError struct {
	Remote string
	// Path 为空表示清单阶段失败
	Path string
	// Op fetch / parse / expose / container / init / factory
	Op  string
	Err error
}

// Error 实现 error 接口
func (e *RemoteError) Error() string {
	target := e.Remote
	if e.Path != "" {
		target = e.Remote + "/" + e.Path
	}
	return fmt.Sprintf("remote unavailable: %s: %s: %v", target, e.Op, e.Err)
}

// Unwrap 同时暴露 ErrRemoteUnavailable 与底层原因
func (e *RemoteError) Unwrap() []error {
	return []error{ErrRemoteUnavailable, e.Err}
}

func remoteErr(remote, path, op string, err error) error {
	// 已经是远程错误（例如清单阶段失败）时不重复包装
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Remote: remote, Path: path, Op: op, Err: err}
}

// VersionConflictError 共享依赖版本冲突
type VersionConflictError struct {
	Library string
	// Active 已激活的版本
	Active string
	// Required 请求的版本范围
	Required string
	// Requester 请求方（远程名），可能为空
	Requester string
}

// Error 实现 error 接口
func (e *VersionConflictError) Error() string {
	if e.Requester != "" {
		return fmt.Sprintf("shared dependency version conflict: %s requires %s@%s, active %s",
			e.Requester, e.Library, e.Required, e.Active)
	}
	return fmt.Sprintf("shared dependency version conflict: %s@%s required, active %s",
		e.Library, e.Required, e.Active)
}

// Is 支持 errors.Is(err, ErrVersionConflict)
func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}
