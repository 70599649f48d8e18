// Package types 定义 fedhost 公共类型
//
// 本文件定义事件总线载荷类型。
package types

import "time"

// Millis 返回 t 的 Unix 毫秒时间戳
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// ============================================================================
//                              用户事件
// ============================================================================

// UserLoginEvent user:login 载荷
type UserLoginEvent struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
}

// UserLogoutEvent user:logout 载荷
type UserLogoutEvent struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// UserProfileUpdatedEvent user:profile-updated 载荷
type UserProfileUpdatedEvent struct {
	UserID    string         `json:"userId"`
	Changes   map[string]any `json:"changes"`
	Timestamp int64          `json:"timestamp"`
}

// ============================================================================
//                              购物车事件
// ============================================================================

// CartItemAddedEvent cart:item-added 载荷
type CartItemAddedEvent struct {
	ItemID    string  `json:"itemId"`
	ItemName  string  `json:"itemName"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// CartItemRemovedEvent cart:item-removed 载荷
type CartItemRemovedEvent struct {
	ItemID    string `json:"itemId"`
	Timestamp int64  `json:"timestamp"`
}

// CartClearReason 购物车清空原因
type CartClearReason string

const (
	CartClearUserAction CartClearReason = "user-action"
	CartClearLogout     CartClearReason = "logout"
	CartClearCheckout   CartClearReason = "checkout"
)

// CartClearedEvent cart:cleared 载荷
type CartClearedEvent struct {
	Timestamp int64           `json:"timestamp"`
	Reason    CartClearReason `json:"reason,omitempty"`
}

// CartCheckoutEvent cart:checkout 载荷
type CartCheckoutEvent struct {
	TotalAmount float64 `json:"totalAmount"`
	ItemCount   int     `json:"itemCount"`
	Timestamp   int64   `json:"timestamp"`
}

// ============================================================================
//                              主题事件
// ============================================================================

// Theme 界面主题
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeChangedEvent theme:changed 载荷
type ThemeChangedEvent struct {
	Theme     Theme `json:"theme"`
	Timestamp int64 `json:"timestamp"`
}

// ============================================================================
//                              通知事件
// ============================================================================

// NotificationType 通知级别
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// NotificationShowEvent notification:show 载荷
type NotificationShowEvent struct {
	ID      string           `json:"id"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
	// Duration 显示时长（毫秒），0 表示不自动关闭
	Duration  int64 `json:"duration,omitempty"`
	Timestamp int64 `json:"timestamp"`
}

// NotificationDismissEvent notification:dismiss 载荷
type NotificationDismissEvent struct {
	NotificationID string `json:"notificationId"`
	Timestamp      int64  `json:"timestamp"`
}

// ============================================================================
//                              导航事件
// ============================================================================

// NavigationEvent navigation:navigate 载荷
type NavigationEvent struct {
	Path      string            `json:"path"`
	Params    map[string]string `json:"params,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// NavigationRequestEvent navigation:request 载荷
//
// 远程片段通过它请求宿主路由跳转，不直接依赖宿主路由实现。
type NavigationRequestEvent struct {
	Path    string `json:"path"`
	Replace bool   `json:"replace,omitempty"`
	State   any    `json:"state,omitempty"`
}

// NavigationCompleteEvent navigation:complete 载荷
type NavigationCompleteEvent struct {
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
}

// ============================================================================
//                              按钮事件
// ============================================================================

// ButtonClickedEvent button:clicked 载荷
type ButtonClickedEvent struct {
	ButtonID  string `json:"buttonId"`
	Label     string `json:"label"`
	Timestamp int64  `json:"timestamp"`
}
