// Package events 提供类型化的事件通道目录
//
// 每个通道名在编译期绑定一种载荷类型：
//
//	events.On(bus, events.CartItemAdded, func(e types.CartItemAddedEvent) {
//	    fmt.Println(e.ItemName, e.Quantity)
//	})
//	events.Emit(bus, events.CartItemAdded, types.CartItemAddedEvent{ItemID: "i1"})
//
// Channel[T] 的构造函数不导出，通道集合只能是本包目录中定义的那些；
// 运行时仍以字符串通道名在 pkg/interfaces.EventBus 上收发。
package events

import (
	"reflect"

	"github.com/dep2p/go-fedhost/internal/util/logger"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

var log = logger.Logger("events")

// Channel 绑定了载荷类型 T 的通道
type Channel[T any] struct {
	name string
}

// newChannel 定义通道并登记到运行时目录
func newChannel[T any](name string) Channel[T] {
	register(name, reflect.TypeOf((*T)(nil)).Elem())
	return Channel[T]{name: name}
}

// Name 返回通道名
func (c Channel[T]) Name() string { return c.name }

// String 实现 fmt.Stringer
func (c Channel[T]) String() string { return c.name }

// ============================================================================
// 类型化收发
// ============================================================================

// Emit 发射类型化事件
func Emit[T any](bus pkgif.EventBus, ch Channel[T], payload T) {
	bus.Emit(ch.name, payload)
}

// On 订阅类型化事件
//
// 返回的取消能力与 Off(bus, ch, handler) 都可以移除该订阅。
func On[T any](bus pkgif.EventBus, ch Channel[T], handler func(T)) pkgif.Unsubscribe {
	return bus.Subscribe(ch.name, adapt(ch, handler), pkgif.IdentifiedBy(handler))
}

// Once 订阅只触发一次的类型化事件
func Once[T any](bus pkgif.EventBus, ch Channel[T], handler func(T)) pkgif.Unsubscribe {
	return bus.Subscribe(ch.name, adapt(ch, handler), pkgif.IdentifiedBy(handler), pkgif.OnceOnly())
}

// Off 移除以 handler 注册的最早一个订阅，未注册时为空操作
func Off[T any](bus pkgif.EventBus, ch Channel[T], handler func(T)) {
	bus.Off(ch.name, handler)
}

// adapt 把类型化处理函数包装为运行时处理函数
//
// 载荷类型不符时跳过并记录警告，只可能来自绕过类型化接口的字符串发射。
func adapt[T any](ch Channel[T], handler func(T)) pkgif.Handler {
	return func(payload any) {
		switch v := payload.(type) {
		case T:
			handler(v)
		case *T:
			if v != nil {
				handler(*v)
				return
			}
			log.Warn("空载荷指针", "channel", ch.name)
		default:
			log.Warn("载荷类型不匹配，跳过处理函数",
				"channel", ch.name,
				"want", reflect.TypeOf((*T)(nil)).Elem().String(),
				"got", reflect.TypeOf(payload))
		}
	}
}
