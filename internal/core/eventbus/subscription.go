package eventbus

import (
	"reflect"
	"sync/atomic"
	"time"
	"unsafe"

	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

// ============================================================================
// subscription 实现
// ============================================================================

// subscription 一个处理函数与一个通道的绑定
type subscription struct {
	bus *Bus

	id      string
	channel string

	// 二者只设置其一
	handler  pkgif.Handler
	wildcard pkgif.WildcardHandler

	// identity Off 匹配用的身份，零值表示无法匹配
	identity identity

	once      bool
	fired     atomic.Bool
	alive     atomic.Bool
	createdAt time.Time
}

// unsubscribe 取消订阅
//
// 幂等：只有第一次调用会从总线移除。
func (s *subscription) unsubscribe() {
	if !s.alive.CompareAndSwap(true, false) {
		return
	}
	s.bus.remove(s)
}

// claim 判断本次是否应该调用处理函数
//
// Once 订阅在调用前先标记已触发并注销。
func (s *subscription) claim() bool {
	if !s.alive.Load() {
		return false
	}
	if s.once {
		if !s.fired.CompareAndSwap(false, true) {
			return false
		}
		s.unsubscribe()
	}
	return true
}

func (s *subscription) info() pkgif.SubscriptionInfo {
	return pkgif.SubscriptionInfo{
		ID:        s.id,
		Channel:   s.channel,
		Once:      s.once,
		CreatedAt: s.createdAt,
	}
}

// identity 订阅在 Off 中的身份
//
// 函数身份由代码指针与函数值指针组成：具名函数两者都固定；
// 同一方法在不同接收者上的方法值（以及同一字面量的闭包）代码指针相同、函数值指针不同。
// key 为 IdentifiedBy 给出的非函数键，按 == 比较。
type identity struct {
	code uintptr
	fn   unsafe.Pointer
	key  any
}

func (id identity) valid() bool {
	return id.code != 0 || id.key != nil
}

// identityOf 计算 v 的身份；v 既不是非空函数也不是可比较的值时返回零值
func identityOf(v any) identity {
	if v == nil {
		return identity{}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Func {
		if rv.IsNil() {
			return identity{}
		}
		return identity{code: rv.Pointer(), fn: funcValuePointer(v)}
	}
	if !rv.Type().Comparable() {
		return identity{}
	}
	return identity{key: v}
}

// funcValuePointer 返回接口中函数值本身的指针（函数类型直接存放在接口数据字中）
func funcValuePointer(v any) unsafe.Pointer {
	type eface struct {
		typ  unsafe.Pointer
		data unsafe.Pointer
	}
	return (*eface)(unsafe.Pointer(&v)).data
}

// matches 是否与 target 为同一类身份且可能是同一个处理函数
func (id identity) matches(target identity) bool {
	if target.key != nil {
		return id.key != nil && id.key == target.key
	}
	return id.key == nil && id.code == target.code
}
