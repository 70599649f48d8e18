package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dep2p/go-fedhost/internal/util/logger"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

var log = logger.Logger("eventbus")

// WildcardChannel 通配订阅在 Handlers 快照与 Clear 中使用的键
const WildcardChannel = "*"

// ============================================================================
// Bus 实现
// ============================================================================

// Bus 事件总线
//
// 零值不可用，使用 NewBus 创建。
type Bus struct {
	mu sync.RWMutex

	// subs 通道 → 订阅列表（写时复制，按注册顺序）
	subs map[string][]*subscription

	// wildcard 通配订阅
	wildcard []*subscription

	clock      clock.Clock
	reporter   pkgif.ErrorReporter
	observer   pkgif.BusObserver
	devLogging bool
	history    *history

	seq atomic.Uint64
}

var _ pkgif.EventBus = (*Bus)(nil)

// NewBus 创建新的事件总线
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:  make(map[string][]*subscription),
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ============================================================================
// 订阅
// ============================================================================

// Subscribe 以选项注册处理函数，返回幂等的取消订阅能力
func (b *Bus) Subscribe(channel string, handler pkgif.Handler, opts ...pkgif.SubscriptionOpt) pkgif.Unsubscribe {
	if handler == nil {
		log.Warn("忽略空处理函数", "channel", channel)
		return func() {}
	}

	var settings pkgif.SubscriptionSettings
	for _, opt := range opts {
		opt(&settings)
	}

	var id identity
	if settings.Identity != nil {
		id = identityOf(settings.Identity)
	} else {
		id = identityOf(handler)
	}

	s := b.newSubscription(channel, settings.Once, id)
	s.handler = handler

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], s)
	b.mu.Unlock()

	log.Debug("订阅", "channel", channel, "id", s.id, "once", s.once)
	return s.unsubscribe
}

// On 注册处理函数
func (b *Bus) On(channel string, handler pkgif.Handler) pkgif.Unsubscribe {
	return b.Subscribe(channel, handler)
}

// Once 注册只触发一次的处理函数
func (b *Bus) Once(channel string, handler pkgif.Handler) pkgif.Unsubscribe {
	return b.Subscribe(channel, handler, pkgif.OnceOnly())
}

// OnAny 注册通配处理函数，在通道处理函数之后调用
func (b *Bus) OnAny(handler pkgif.WildcardHandler) pkgif.Unsubscribe {
	if handler == nil {
		return func() {}
	}

	s := b.newSubscription(WildcardChannel, false, identityOf(handler))
	s.wildcard = handler

	b.mu.Lock()
	b.wildcard = append(b.wildcard, s)
	b.mu.Unlock()

	return s.unsubscribe
}

// Off 移除该通道上与 handler 对应的最早一个存活订阅
//
// handler 可以是注册时的函数值、IdentifiedBy 指定的函数，或 IdentifiedBy 指定的可比较键。
// 具名函数与键总能精确匹配。方法值与闭包每次求值都是新的函数值：
// 传入注册时的同一个值时精确匹配；否则只在代码指针唯一时匹配，
// 多个接收者共享代码指针时拒绝猜测，记录警告且不移除任何订阅。
func (b *Bus) Off(channel string, handler any) {
	target := identityOf(handler)
	if !target.valid() {
		log.Debug("Off: 无法识别的处理函数，忽略", "channel", channel)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[channel]
	if channel == WildcardChannel {
		list = b.wildcard
	}

	var candidates []*subscription
	for _, s := range list {
		if s.alive.Load() && s.identity.matches(target) {
			candidates = append(candidates, s)
		}
	}

	victim := pickOff(candidates, target)
	if victim == nil {
		if len(candidates) > 1 {
			log.Warn("Off: 多个订阅共享同一代码指针，无法确定目标，未移除",
				"channel", channel, "candidates", len(candidates))
		} else {
			log.Debug("Off: 未找到订阅", "channel", channel)
		}
		return
	}
	if victim.alive.CompareAndSwap(true, false) {
		b.removeLocked(victim)
	}
}

// pickOff 在候选订阅中选出 Off 的目标，无法确定时返回 nil
func pickOff(candidates []*subscription, target identity) *subscription {
	if len(candidates) == 0 {
		return nil
	}
	if target.key != nil {
		return candidates[0]
	}
	// 同一个函数值
	for _, s := range candidates {
		if s.identity.fn == target.fn {
			return s
		}
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	// 同一个函数值注册了多次
	first := candidates[0].identity.fn
	for _, s := range candidates[1:] {
		if s.identity.fn != first {
			return nil
		}
	}
	return candidates[0]
}

// Clear 移除指定通道的全部订阅；不传参数时移除全部（包括通配订阅）
func (b *Bus) Clear(channels ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(channels) == 0 {
		for _, list := range b.subs {
			kill(list)
		}
		kill(b.wildcard)
		b.subs = make(map[string][]*subscription)
		b.wildcard = nil
		return
	}

	for _, ch := range channels {
		if ch == WildcardChannel {
			kill(b.wildcard)
			b.wildcard = nil
			continue
		}
		kill(b.subs[ch])
		delete(b.subs, ch)
	}
}

// Handlers 返回订阅表的深拷贝快照，通配订阅位于 "*" 键下
func (b *Bus) Handlers() map[string][]pkgif.SubscriptionInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string][]pkgif.SubscriptionInfo, len(b.subs)+1)
	for ch, list := range b.subs {
		if infos := snapshot(list); len(infos) > 0 {
			out[ch] = infos
		}
	}
	if infos := snapshot(b.wildcard); len(infos) > 0 {
		out[WildcardChannel] = infos
	}
	return out
}

// Count 返回通道上的存活订阅数
func (b *Bus) Count(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	list := b.subs[channel]
	if channel == WildcardChannel {
		list = b.wildcard
	}
	n := 0
	for _, s := range list {
		if s.alive.Load() {
			n++
		}
	}
	return n
}

// ============================================================================
// 发射
// ============================================================================

// Emit 同步地按注册顺序调用该通道当前存活的处理函数，然后调用通配处理函数
func (b *Bus) Emit(channel string, payload any) {
	b.mu.RLock()
	// 写时复制，直接持有切片即为快照
	subs := b.subs[channel]
	wild := b.wildcard
	b.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if s.claim() {
			b.invoke(s, channel, payload)
			delivered++
		}
	}
	for _, s := range wild {
		if s.claim() {
			b.invoke(s, channel, payload)
		}
	}

	b.record(channel, payload, delivered)
}

// Recent 返回最近 n 次发射记录（从旧到新），未开启历史时返回 nil
func (b *Bus) Recent(n int) []Record {
	if b.history == nil {
		return nil
	}
	return b.history.recent(n)
}

// ============================================================================
// 内部方法
// ============================================================================

func (b *Bus) newSubscription(channel string, once bool, id identity) *subscription {
	s := &subscription{
		bus:       b,
		id:        uuid.NewString(),
		channel:   channel,
		identity:  id,
		once:      once,
		createdAt: b.clock.Now(),
	}
	s.alive.Store(true)
	return s
}

// invoke 调用处理函数并隔离 panic
func (b *Bus) invoke(s *subscription, channel string, payload any) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := &HandlerError{Channel: channel, SubscriptionID: s.id, Value: r}
		log.Error("处理函数失败", "channel", channel, "subscription", s.id, "err", err)
		if b.observer != nil {
			b.observer.HandlerFailed(channel)
		}
		if b.reporter != nil {
			b.reporter(err)
		}
	}()

	if s.wildcard != nil {
		s.wildcard(channel, payload)
		return
	}
	s.handler(payload)
}

func (b *Bus) record(channel string, payload any, delivered int) {
	if b.observer != nil {
		b.observer.EmitObserved(channel, delivered)
	}
	if b.devLogging {
		log.Info("emit", "channel", channel, "payload", payload, "delivered", delivered)
	}
	if b.history != nil {
		b.history.add(Record{
			Seq:       b.seq.Add(1),
			Channel:   channel,
			Payload:   payload,
			Delivered: delivered,
			At:        b.clock.Now(),
		})
	}
}

// remove 从订阅表中移除
func (b *Bus) remove(s *subscription) {
	b.mu.Lock()
	b.removeLocked(s)
	b.mu.Unlock()
}

// removeLocked 调用方需持有写锁
//
// 总是生成新切片，进行中的 Emit 持有的快照不受影响。
func (b *Bus) removeLocked(s *subscription) {
	if s.wildcard != nil {
		b.wildcard = without(b.wildcard, s)
		return
	}
	list := without(b.subs[s.channel], s)
	if len(list) == 0 {
		delete(b.subs, s.channel)
		return
	}
	b.subs[s.channel] = list
}

func without(list []*subscription, s *subscription) []*subscription {
	for i, cur := range list {
		if cur != s {
			continue
		}
		out := make([]*subscription, 0, len(list)-1)
		out = append(out, list[:i]...)
		return append(out, list[i+1:]...)
	}
	return list
}

func kill(list []*subscription) {
	for _, s := range list {
		s.alive.Store(false)
	}
}

func snapshot(list []*subscription) []pkgif.SubscriptionInfo {
	infos := make([]pkgif.SubscriptionInfo, 0, len(list))
	for _, s := range list {
		if s.alive.Load() {
			infos = append(infos, s.info())
		}
	}
	return infos
}
