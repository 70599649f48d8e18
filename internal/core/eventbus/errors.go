package eventbus

import (
	"errors"
	"fmt"
)

// ============================================================================
// 错误定义
// ============================================================================

// ErrHandler 处理函数在发射过程中 panic
//
// 总线在边界处恢复 panic，包装为 *HandlerError，可用 errors.Is 判断。
var ErrHandler = errors.New("eventbus: handler failed")

// HandlerError 一次处理函数失败
type HandlerError struct {
	// Channel 发射的通道
	Channel string

	// SubscriptionID 失败的订阅
	SubscriptionID string

	// Value recover 得到的值
	Value any
}

// Error 实现 error 接口
func (e *HandlerError) Error() string {
	return fmt.Sprintf("eventbus: handler %s on %q panicked: %v", e.SubscriptionID, e.Channel, e.Value)
}

// Unwrap 返回 ErrHandler，若 panic 的值本身是 error 也一并返回
func (e *HandlerError) Unwrap() []error {
	errs := []error{ErrHandler}
	if err, ok := e.Value.(error); ok {
		errs = append(errs, err)
	}
	return errs
}
