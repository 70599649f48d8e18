// Package types 定义 fedhost 的基础类型
//
// 本文件定义公共错误类型。
package types

import "errors"

var (
	// ErrInvalidModuleRef 无效的远程模块引用
	ErrInvalidModuleRef = errors.New("invalid module reference, want <remote>/<path>")

	// ErrUnknownChannel 事件目录中不存在的通道
	ErrUnknownChannel = errors.New("unknown event channel")
)
