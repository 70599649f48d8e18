package events

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/dep2p/go-fedhost/pkg/types"
)

// ============================================================================
//                              通道目录
// ============================================================================

// 用户
var (
	UserLogin          = newChannel[types.UserLoginEvent]("user:login")
	UserLogout         = newChannel[types.UserLogoutEvent]("user:logout")
	UserProfileUpdated = newChannel[types.UserProfileUpdatedEvent]("user:profile-updated")
)

// 购物车
var (
	CartItemAdded   = newChannel[types.CartItemAddedEvent]("cart:item-added")
	CartItemRemoved = newChannel[types.CartItemRemovedEvent]("cart:item-removed")
	CartCleared     = newChannel[types.CartClearedEvent]("cart:cleared")
	CartCheckout    = newChannel[types.CartCheckoutEvent]("cart:checkout")
)

// 主题
var ThemeChanged = newChannel[types.ThemeChangedEvent]("theme:changed")

// 通知
var (
	NotificationShow    = newChannel[types.NotificationShowEvent]("notification:show")
	NotificationDismiss = newChannel[types.NotificationDismissEvent]("notification:dismiss")
)

// 导航
var (
	NavigationNavigate = newChannel[types.NavigationEvent]("navigation:navigate")
	NavigationRequest  = newChannel[types.NavigationRequestEvent]("navigation:request")
	NavigationComplete = newChannel[types.NavigationCompleteEvent]("navigation:complete")
)

// 远程组件
var ButtonClicked = newChannel[types.ButtonClickedEvent]("button:clicked")

// ============================================================================
//                              运行时查找
// ============================================================================

var (
	catalogMu sync.RWMutex
	catalog   = map[string]reflect.Type{}
)

func register(name string, typ reflect.Type) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	if _, dup := catalog[name]; dup {
		panic(fmt.Sprintf("events: channel %q defined twice", name))
	}
	catalog[name] = typ
}

// Lookup 返回通道的载荷类型
func Lookup(name string) (reflect.Type, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	typ, ok := catalog[name]
	return typ, ok
}

// Known 判断通道是否在目录中
func Known(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Names 返回全部通道名（已排序）
func Names() []string {
	catalogMu.RLock()
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	catalogMu.RUnlock()

	slices.Sort(names)
	return names
}

// Decode 按通道的载荷类型解码 JSON
//
// 返回值是载荷的值类型（不是指针），可以直接交给 EventBus.Emit，
// 类型化订阅者能正常收到。未知通道返回 types.ErrUnknownChannel。
func Decode(name string, data []byte) (any, error) {
	typ, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownChannel, name)
	}
	ptr := reflect.New(typ)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", name, err)
	}
	return ptr.Elem().Interface(), nil
}
