package events

import (
	"sync"

	"github.com/dep2p/go-fedhost/internal/core/eventbus"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

// Scope 一组随组件一起释放的订阅
//
// 组件挂载时创建，卸载时 Close：
//
//	scope := events.NewScope(bus)
//	defer scope.Close()
//	events.Listen(scope, events.UserLogout, cart.onLogout)
type Scope struct {
	bus pkgif.EventBus

	mu     sync.Mutex
	unsubs []pkgif.Unsubscribe
	closed bool
}

// NewScope 创建订阅作用域
func NewScope(bus pkgif.EventBus) *Scope {
	return &Scope{bus: bus}
}

// Bus 返回作用域所在的总线
func (s *Scope) Bus() pkgif.EventBus { return s.bus }

// Add 把取消能力纳入作用域；作用域已关闭时立即调用
func (s *Scope) Add(unsubscribe pkgif.Unsubscribe) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return
	}
	s.unsubs = append(s.unsubs, unsubscribe)
	s.mu.Unlock()
}

// Close 释放全部订阅，可以多次调用
func (s *Scope) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.closed = true
	s.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

// Len 返回作用域内的订阅数
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unsubs)
}

// Listen 在作用域内订阅
func Listen[T any](s *Scope, ch Channel[T], handler func(T)) {
	s.Add(On(s.bus, ch, handler))
}

// ListenOnce 在作用域内订阅一次
func ListenOnce[T any](s *Scope, ch Channel[T], handler func(T)) {
	s.Add(Once(s.bus, ch, handler))
}

// ============================================================================
//                              进程默认总线
// ============================================================================

var (
	defaultOnce sync.Once
	defaultBus  pkgif.EventBus
)

// Default 返回进程默认总线，首次调用时创建
//
// 宿主通常通过共享依赖协商把自己的总线交给远程；没有宿主的独立片段使用它。
func Default() pkgif.EventBus {
	defaultOnce.Do(func() {
		defaultBus = eventbus.NewBus()
	})
	return defaultBus
}
