package remotes

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fedhost/internal/app"
	"github.com/dep2p/go-fedhost/internal/core/federation"
	"github.com/dep2p/go-fedhost/pkg/events"
)

// ============================================================================
//                              sharedUtils
// ============================================================================

// Utils sharedUtils/utils 的导出
type Utils struct {
	clock clock.Clock
}

// UserMessage 返回问候语，远程按钮点击后展示
func (u *Utils) UserMessage() string {
	return "Hello from shared utils!"
}

// FormatPrice 以美元格式化价格
func (u *Utils) FormatPrice(price float64) string {
	return fmt.Sprintf("$%.2f", price)
}

// FormatTimestamp 把事件时间戳（毫秒）格式化为 RFC3339
func (u *Utils) FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// Since 返回事件时间戳距今的时长
func (u *Utils) Since(ms int64) time.Duration {
	return u.clock.Since(time.UnixMilli(ms))
}

// Types sharedUtils/types 的导出：事件通道与路由表
type Types struct {
	Channels []string          `json:"channels"`
	Routes   map[string]string `json:"routes"`
}

func newTypes() *Types {
	return &Types{
		Channels: events.Names(),
		Routes: map[string]string{
			"HOME":             app.RouteHome,
			"REMOTE1.ROOT":     app.RouteRemote1,
			"REMOTE1.PRODUCTS": app.RouteRemote1Products,
			"REMOTE2.ROOT":     app.RouteRemote2,
			"REMOTE2.CART":     app.RouteRemote2Cart,
			"REMOTE2.CHECKOUT": app.RouteRemote2Checkout,
		},
	}
}

// NewSharedUtils 创建 sharedUtils 容器
//
// eventBus 导出的是共享作用域中协商到的事件总线，与宿主是同一个实例。
func NewSharedUtils(opts ...Option) *federation.StaticContainer {
	o := applyOptions(opts)
	c := declareShared(federation.NewStaticContainer(SharedUtils))

	c.Expose("eventBus", func() (any, error) {
		return sharedBus(c.Scope())
	})
	c.Expose("utils", func() (any, error) {
		return &Utils{clock: o.clock}, nil
	})
	c.Expose("types", func() (any, error) {
		return newTypes(), nil
	})
	return c
}
