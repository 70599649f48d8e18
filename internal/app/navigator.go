package app

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fedhost/internal/util/logger"
	"github.com/dep2p/go-fedhost/pkg/events"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

var log = logger.Logger("app")

// ErrInvalidPath 路由不以 "/" 开头
var ErrInvalidPath = errors.New("invalid path")

// ============================================================================
//                              Navigator - 路由历史
// ============================================================================

// Navigator 宿主路由历史
//
// 远程片段发出 navigation:request 请求跳转，不直接依赖宿主路由实现；
// 每次跳转完成后发出 navigation:complete。
type Navigator struct {
	bus   pkgif.EventBus
	clock clock.Clock
	scope *events.Scope

	mu      sync.RWMutex
	history []string
	state   any
}

// NewNavigator 创建路由历史并订阅导航请求，初始位于 "/"
func NewNavigator(bus pkgif.EventBus, opts ...Option) *Navigator {
	o := applyOptions(opts)
	n := &Navigator{
		bus:     bus,
		clock:   o.clock,
		scope:   events.NewScope(bus),
		history: []string{RouteHome},
	}

	events.Listen(n.scope, events.NavigationRequest, func(e types.NavigationRequestEvent) {
		if err := n.navigate(e.Path, e.Replace, e.State); err != nil {
			log.Warn("忽略导航请求", "path", e.Path, "err", err)
		}
	})
	events.Listen(n.scope, events.NavigationNavigate, func(e types.NavigationEvent) {
		if err := n.navigate(e.Path, false, nil); err != nil {
			log.Warn("忽略导航事件", "path", e.Path, "err", err)
		}
	})
	return n
}

// Navigate 跳转到 path；replace 为 true 时替换当前记录
func (n *Navigator) Navigate(path string, replace bool) error {
	return n.navigate(path, replace, nil)
}

// GoBack 回到上一条记录；已在最早的记录时返回 false
func (n *Navigator) GoBack() bool {
	n.mu.Lock()
	if len(n.history) <= 1 {
		n.mu.Unlock()
		return false
	}
	n.history = n.history[:len(n.history)-1]
	n.state = nil
	path := n.history[len(n.history)-1]
	n.mu.Unlock()

	n.complete(path)
	return true
}

// CurrentPath 返回当前路由
func (n *Navigator) CurrentPath() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.history[len(n.history)-1]
}

// State 返回最近一次请求携带的状态
func (n *Navigator) State() any {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// History 返回历史记录副本，最后一条为当前路由
func (n *Navigator) History() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.history)
}

// Close 取消订阅
func (n *Navigator) Close() {
	n.scope.Close()
}

func (n *Navigator) navigate(path string, replace bool, state any) error {
	if !ValidPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	n.mu.Lock()
	if replace {
		n.history[len(n.history)-1] = path
	} else {
		n.history = append(n.history, path)
	}
	n.state = state
	n.mu.Unlock()

	log.Debug("导航完成", "path", path, "replace", replace)
	n.complete(path)
	return nil
}

func (n *Navigator) complete(path string) {
	events.Emit(n.bus, events.NavigationComplete, types.NavigationCompleteEvent{
		Path:      path,
		Timestamp: types.Millis(n.clock.Now()),
	})
}
