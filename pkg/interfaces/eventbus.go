// Package interfaces 定义 fedhost 公共接口
//
// 本文件定义 EventBus 接口，提供片段间的发布/订阅。
package interfaces

import "time"

// Handler 通道处理函数
type Handler func(payload any)

// WildcardHandler 通配处理函数，接收所有通道的事件
type WildcardHandler func(channel string, payload any)

// Unsubscribe 取消订阅能力
//
// 只移除对应的那一个订阅，可以多次调用。
type Unsubscribe func()

// ErrorReporter 接收处理函数失败（panic）的回调
type ErrorReporter func(err error)

// EventBus 定义事件总线接口
//
// 运行时按字符串通道名索引；编译期类型安全由 pkg/events 的 Channel[T] 提供。
type EventBus interface {
	// Emit 同步地按注册顺序调用该通道当前所有存活的处理函数
	//
	// 没有订阅者时静默返回。单个处理函数 panic 不影响其余处理函数。
	Emit(channel string, payload any)

	// Subscribe 以选项注册处理函数
	Subscribe(channel string, handler Handler, opts ...SubscriptionOpt) Unsubscribe

	// On 注册处理函数
	On(channel string, handler Handler) Unsubscribe

	// Once 注册只触发一次的处理函数
	Once(channel string, handler Handler) Unsubscribe

	// Off 移除该通道上第一个与 handler 相同的订阅；找不到时为安全空操作
	Off(channel string, handler any)

	// OnAny 注册通配处理函数
	OnAny(handler WildcardHandler) Unsubscribe

	// Clear 移除指定通道的全部订阅；不传参数时移除所有通道
	Clear(channels ...string)

	// Handlers 返回订阅表的只读快照（调试用）
	Handlers() map[string][]SubscriptionInfo
}

// SubscriptionInfo 订阅快照
type SubscriptionInfo struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Once      bool      `json:"once"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubscriptionOpt 订阅选项函数类型
type SubscriptionOpt func(*SubscriptionSettings)

// SubscriptionSettings 订阅设置（导出以供实现使用）
type SubscriptionSettings struct {
	// Once 首次触发后自动注销
	Once bool

	// Identity Off 匹配时使用的函数值或可比较键；为空时使用 handler 本身
	Identity any
}

// OnceOnly 设置订阅只触发一次
func OnceOnly() SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Once = true
	}
}

// IdentifiedBy 指定 Off 匹配使用的身份
//
// key 为函数时按函数身份匹配（类型化包装借此让 Off(原函数) 找到订阅）；
// 其它可比较的值按 == 匹配，适合同一方法挂在多个接收者上的组件：
//
//	bus.Subscribe("cart:cleared", c.onCleared, interfaces.IdentifiedBy(c))
//	bus.Off("cart:cleared", c)
func IdentifiedBy(key any) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Identity = key
	}
}

// BusObserver 事件总线观测接口（指标）
type BusObserver interface {
	// EmitObserved 一次发射完成，delivered 为实际调用的处理函数数量
	EmitObserved(channel string, delivered int)

	// HandlerFailed 处理函数 panic
	HandlerFailed(channel string)
}
