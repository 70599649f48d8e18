package app

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dep2p/go-fedhost/pkg/events"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

// Notification 正在显示的通知
type Notification struct {
	ID       string                 `json:"id"`
	Message  string                 `json:"message"`
	Type     types.NotificationType `json:"type"`
	ShownAt  time.Time              `json:"shownAt"`
	Duration time.Duration          `json:"duration,omitempty"`
}

// Notifier 通知列表
//
// 任何片段都可以发出 notification:dismiss 关闭通知；
// Duration 大于 0 的通知到期后自动关闭。
type Notifier struct {
	bus   pkgif.EventBus
	clock clock.Clock
	scope *events.Scope

	mu     sync.Mutex
	active map[string]*notification
	order  []string
}

type notification struct {
	Notification
	timer *clock.Timer
}

// NewNotifier 创建通知列表并订阅关闭事件
func NewNotifier(bus pkgif.EventBus, opts ...Option) *Notifier {
	o := applyOptions(opts)
	n := &Notifier{
		bus:    bus,
		clock:  o.clock,
		scope:  events.NewScope(bus),
		active: make(map[string]*notification),
	}
	events.Listen(n.scope, events.NotificationDismiss, func(e types.NotificationDismissEvent) {
		n.remove(e.NotificationID)
	})
	return n
}

// Show 显示通知并发出 notification:show，返回通知 ID
func (n *Notifier) Show(message string, typ types.NotificationType, duration time.Duration) string {
	if typ == "" {
		typ = types.NotificationInfo
	}
	id := uuid.NewString()
	now := n.clock.Now()

	entry := &notification{Notification: Notification{
		ID:       id,
		Message:  message,
		Type:     typ,
		ShownAt:  now,
		Duration: duration,
	}}

	n.mu.Lock()
	n.active[id] = entry
	n.order = append(n.order, id)
	if duration > 0 {
		entry.timer = n.clock.AfterFunc(duration, func() { n.Dismiss(id) })
	}
	n.mu.Unlock()

	events.Emit(n.bus, events.NotificationShow, types.NotificationShowEvent{
		ID:        id,
		Message:   message,
		Type:      typ,
		Duration:  duration.Milliseconds(),
		Timestamp: types.Millis(now),
	})
	return id
}

// Dismiss 发出 notification:dismiss；通知不存在时返回 false
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	_, ok := n.active[id]
	n.mu.Unlock()
	if !ok {
		return false
	}

	events.Emit(n.bus, events.NotificationDismiss, types.NotificationDismissEvent{
		NotificationID: id,
		Timestamp:      types.Millis(n.clock.Now()),
	})
	// 订阅已关闭时自行移除
	n.remove(id)
	return true
}

// Active 返回正在显示的通知，按显示顺序
func (n *Notifier) Active() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notification, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.active[id].Notification)
	}
	return out
}

// Close 取消订阅并停止全部计时器
func (n *Notifier) Close() {
	n.scope.Close()

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, entry := range n.active {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
}

func (n *Notifier) remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	entry, ok := n.active[id]
	if !ok {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(n.active, id)
	for i, v := range n.order {
		if v == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}
