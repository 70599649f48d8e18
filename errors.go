package fedhost

import (
	"errors"

	"github.com/dep2p/go-fedhost/internal/core/eventbus"
	"github.com/dep2p/go-fedhost/internal/core/federation"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 宿主生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 宿主未启动
	ErrNotStarted = errors.New("host not started")

	// ErrAlreadyStarted 宿主已启动
	ErrAlreadyStarted = errors.New("host already started")

	// ErrHostClosed 宿主已停止，不能再次启动
	ErrHostClosed = errors.New("host closed")

	// ────────────────────────────────────────────────────────────────────────
	// 远程解析错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrRemoteUnavailable 远程清单抓取、解析或模块加载失败
	ErrRemoteUnavailable = federation.ErrRemoteUnavailable

	// ErrVersionConflict 共享单例版本不兼容
	ErrVersionConflict = federation.ErrVersionConflict

	// ErrInvalidRef 无效的模块引用
	ErrInvalidRef = federation.ErrInvalidRef

	// ErrUnknownRemote 远程表中没有该远程
	ErrUnknownRemote = federation.ErrUnknownRemote

	// ErrUnexpectedExport 导出的类型与 Import 要求的类型不符
	ErrUnexpectedExport = errors.New("unexpected export type")

	// ────────────────────────────────────────────────────────────────────────
	// 事件总线错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrHandler 处理函数 panic
	ErrHandler = eventbus.ErrHandler
)

// 错误类型
type (
	// RemoteError 远程不可用的详细信息
	RemoteError = federation.RemoteError

	// VersionConflictError 版本冲突的详细信息
	VersionConflictError = federation.VersionConflictError

	// HandlerError 处理函数失败的详细信息
	HandlerError = eventbus.HandlerError
)
