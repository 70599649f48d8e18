package remotes

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fedhost/internal/app"
	"github.com/dep2p/go-fedhost/internal/core/federation"
)

// ============================================================================
//                              remoteApp2
// ============================================================================

// CartView remoteApp2/Cart 的导出
//
// 购物车状态归 remoteApp2 所有，建立在共享事件总线上，
// 所以宿主的登出事件同样会清空它。
type CartView struct {
	*app.Cart

	clock clock.Clock
}

// AddProduct 加入一件自动命名的商品，返回该商品
func (v *CartView) AddProduct() (app.Item, error) {
	item := app.Item{
		ID:    v.clock.Now().UTC().Format(time.RFC3339Nano),
		Name:  fmt.Sprintf("Product-%d", v.Len()+1),
		Price: float64(rand.Intn(100)),
	}
	if err := v.Add(item, 1); err != nil {
		return app.Item{}, err
	}
	return item, nil
}

// NewRemoteApp2 创建 remoteApp2 容器
func NewRemoteApp2(opts ...Option) *federation.StaticContainer {
	o := applyOptions(opts)
	c := declareShared(federation.NewStaticContainer(RemoteApp2))

	c.Expose("Cart", func() (any, error) {
		bus, err := sharedBus(c.Scope())
		if err != nil {
			return nil, err
		}
		log.Debug("购物车已挂载到共享事件总线")
		return &CartView{Cart: app.NewCart(bus, app.WithClock(o.clock)), clock: o.clock}, nil
	})
	return c
}
