package app

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fedhost/pkg/events"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

// ErrEmptyCart 结算空购物车
var ErrEmptyCart = errors.New("cart is empty")

// Item 购物车条目
type Item struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// CartState 购物车快照
type CartState struct {
	Items []Item  `json:"items"`
	Total float64 `json:"total"`
}

// ============================================================================
//                              Cart - 购物车
// ============================================================================

// Cart 购物车
//
// 同一商品可以出现多次，Remove 每次移除最早的一条。
// 收到 user:logout 时以 logout 原因清空。
type Cart struct {
	bus   pkgif.EventBus
	clock clock.Clock
	scope *events.Scope

	mu    sync.RWMutex
	items []Item
	total float64
}

// NewCart 创建空购物车并订阅登出事件
func NewCart(bus pkgif.EventBus, opts ...Option) *Cart {
	o := applyOptions(opts)
	c := &Cart{
		bus:   bus,
		clock: o.clock,
		scope: events.NewScope(bus),
	}
	events.Listen(c.scope, events.UserLogout, func(types.UserLogoutEvent) {
		c.Clear(types.CartClearLogout)
	})
	return c
}

// Add 加入 quantity 件商品并发出 cart:item-added
func (c *Cart) Add(item Item, quantity int) error {
	if item.ID == "" {
		return errors.New("add to cart: item id is required")
	}
	if quantity <= 0 {
		return fmt.Errorf("add to cart: quantity must be positive, got %d", quantity)
	}

	c.mu.Lock()
	for i := 0; i < quantity; i++ {
		c.items = append(c.items, item)
		c.total += item.Price
	}
	c.mu.Unlock()

	events.Emit(c.bus, events.CartItemAdded, types.CartItemAddedEvent{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Quantity:  quantity,
		Price:     item.Price,
		Timestamp: c.now(),
	})
	return nil
}

// Remove 移除一件商品并发出 cart:item-removed；不存在时返回 false
func (c *Cart) Remove(id string) bool {
	c.mu.Lock()
	idx := slices.IndexFunc(c.items, func(it Item) bool { return it.ID == id })
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.total -= c.items[idx].Price
	c.items = slices.Delete(c.items, idx, idx+1)
	if len(c.items) == 0 {
		c.total = 0
	}
	c.mu.Unlock()

	events.Emit(c.bus, events.CartItemRemoved, types.CartItemRemovedEvent{
		ItemID:    id,
		Timestamp: c.now(),
	})
	return true
}

// Clear 清空并发出 cart:cleared；已经为空时不发事件
func (c *Cart) Clear(reason types.CartClearReason) bool {
	c.mu.Lock()
	if len(c.items) == 0 {
		c.mu.Unlock()
		return false
	}
	c.items = nil
	c.total = 0
	c.mu.Unlock()

	events.Emit(c.bus, events.CartCleared, types.CartClearedEvent{
		Timestamp: c.now(),
		Reason:    reason,
	})
	return true
}

// Checkout 发出 cart:checkout，然后以 checkout 原因清空
func (c *Cart) Checkout() (CartState, error) {
	st := c.State()
	if len(st.Items) == 0 {
		return CartState{}, ErrEmptyCart
	}

	events.Emit(c.bus, events.CartCheckout, types.CartCheckoutEvent{
		TotalAmount: st.Total,
		ItemCount:   len(st.Items),
		Timestamp:   c.now(),
	})
	c.Clear(types.CartClearCheckout)
	return st, nil
}

// State 返回购物车快照
func (c *Cart) State() CartState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CartState{Items: slices.Clone(c.items), Total: c.total}
}

// Len 返回条目数
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close 取消订阅
func (c *Cart) Close() {
	c.scope.Close()
}

func (c *Cart) now() int64 {
	return types.Millis(c.clock.Now())
}
