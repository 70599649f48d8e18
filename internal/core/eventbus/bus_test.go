package eventbus

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

// ============================================================================
// 接口契约测试
// ============================================================================

// TestBus_ImplementsInterface 验证 Bus 实现接口
func TestBus_ImplementsInterface(t *testing.T) {
	var _ pkgif.EventBus = (*Bus)(nil)
}

// ============================================================================
// 发射
// ============================================================================

// TestBus_EmitOrder 测试按注册顺序调用且不串通道
func TestBus_EmitOrder(t *testing.T) {
	bus := NewBus()

	var calls []string
	for i := 0; i < 3; i++ {
		i := i
		bus.On("theme:changed", func(payload any) {
			calls = append(calls, fmt.Sprintf("h%d:%v", i, payload))
		})
	}
	bus.On("user:logout", func(any) {
		calls = append(calls, "other")
	})

	bus.Emit("theme:changed", "dark")

	assert.Equal(t, []string{"h0:dark", "h1:dark", "h2:dark"}, calls)
}

// TestBus_EmitNoSubscribers 测试无订阅者时静默返回
func TestBus_EmitNoSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Emit("cart:checkout", types.CartCheckoutEvent{TotalAmount: 1})
	})
}

// TestBus_CartItemAdded 先订阅的收到一次，后订阅的收不到
func TestBus_CartItemAdded(t *testing.T) {
	bus := NewBus()
	payload := types.CartItemAddedEvent{
		ItemID:    "i1",
		ItemName:  "Widget",
		Quantity:  1,
		Price:     9.99,
		Timestamp: 1000,
	}

	var before []any
	bus.On("cart:item-added", func(p any) { before = append(before, p) })

	bus.Emit("cart:item-added", payload)

	var after []any
	bus.On("cart:item-added", func(p any) { after = append(after, p) })

	require.Len(t, before, 1)
	assert.Equal(t, payload, before[0])
	assert.Empty(t, after)
}

// ============================================================================
// 取消订阅
// ============================================================================

func TestBus_Unsubscribe(t *testing.T) {
	t.Run("幂等", func(t *testing.T) {
		bus := NewBus()
		count := 0
		unsubscribe := bus.On("user:logout", func(any) { count++ })

		bus.Emit("user:logout", nil)
		unsubscribe()
		unsubscribe()
		bus.Emit("user:logout", nil)

		assert.Equal(t, 1, count)
		assert.Zero(t, bus.Count("user:logout"))
	})

	t.Run("只移除自己", func(t *testing.T) {
		bus := NewBus()
		var got []string
		unA := bus.On("x", func(any) { got = append(got, "a") })
		bus.On("x", func(any) { got = append(got, "b") })

		unA()
		unA()
		bus.Emit("x", nil)

		assert.Equal(t, []string{"b"}, got)
	})

	t.Run("发射中被其他处理函数取消", func(t *testing.T) {
		bus := NewBus()
		var got []string
		var unB pkgif.Unsubscribe

		bus.On("x", func(any) {
			got = append(got, "a")
			unB()
		})
		unB = bus.On("x", func(any) { got = append(got, "b") })

		bus.Emit("x", nil)
		bus.Emit("x", nil)

		assert.Equal(t, []string{"a", "a"}, got)
	})

	t.Run("发射中新增的订阅不收到本次事件", func(t *testing.T) {
		bus := NewBus()
		late := 0
		bus.Once("x", func(any) {
			bus.On("x", func(any) { late++ })
		})

		bus.Emit("x", nil)
		assert.Zero(t, late)

		bus.Emit("x", nil)
		assert.Equal(t, 1, late)
	})
}

// ============================================================================
// Once
// ============================================================================

func TestBus_Once(t *testing.T) {
	t.Run("最多触发一次", func(t *testing.T) {
		bus := NewBus()
		count := 0
		bus.Once("user:login", func(any) { count++ })

		for i := 0; i < 5; i++ {
			bus.Emit("user:login", i)
		}
		assert.Equal(t, 1, count)
		assert.Zero(t, bus.Count("user:login"))
	})

	t.Run("重入发射", func(t *testing.T) {
		bus := NewBus()
		count := 0
		bus.Once("x", func(any) {
			count++
			bus.Emit("x", nil)
		})

		bus.Emit("x", nil)
		assert.Equal(t, 1, count)
	})

	t.Run("触发前取消", func(t *testing.T) {
		bus := NewBus()
		count := 0
		unsubscribe := bus.Once("x", func(any) { count++ })
		unsubscribe()
		bus.Emit("x", nil)
		assert.Zero(t, count)
	})
}

// ============================================================================
// Off
// ============================================================================

var offCalls int

func offHandler(any) { offCalls++ }

func otherHandler(any) {}

func TestBus_Off(t *testing.T) {
	t.Run("未注册的处理函数是空操作", func(t *testing.T) {
		bus := NewBus()
		bus.On("x", otherHandler)

		assert.NotPanics(t, func() {
			bus.Off("x", offHandler)
			bus.Off("never", offHandler)
			bus.Off("x", nil)
			bus.Off("x", "not a func")
		})
		assert.Equal(t, 1, bus.Count("x"))
	})

	t.Run("重复注册每次移除一个", func(t *testing.T) {
		offCalls = 0
		bus := NewBus()
		bus.On("x", offHandler)
		bus.On("x", offHandler)

		bus.Emit("x", nil)
		assert.Equal(t, 2, offCalls)

		bus.Off("x", offHandler)
		bus.Emit("x", nil)
		assert.Equal(t, 3, offCalls)

		bus.Off("x", offHandler)
		bus.Emit("x", nil)
		assert.Equal(t, 3, offCalls)
	})

	t.Run("IdentifiedBy", func(t *testing.T) {
		bus := NewBus()
		count := 0
		bus.Subscribe("x", func(any) { count++ }, pkgif.IdentifiedBy(offHandler))

		bus.Off("x", offHandler)
		bus.Emit("x", nil)
		assert.Zero(t, count)
	})
}

type counter struct{ hits int }

func (c *counter) Handle(any) { c.hits++ }

func TestBus_OffMethodValues(t *testing.T) {
	t.Run("同一个方法值精确移除", func(t *testing.T) {
		bus := NewBus()
		a, b := &counter{}, &counter{}
		ha, hb := a.Handle, b.Handle
		bus.On("x", ha)
		bus.On("x", hb)

		bus.Off("x", hb)
		bus.Emit("x", nil)
		assert.Equal(t, 1, a.hits)
		assert.Zero(t, b.hits)
	})

	t.Run("多个接收者时不猜测", func(t *testing.T) {
		bus := NewBus()
		a, b := &counter{}, &counter{}
		bus.On("x", a.Handle)
		bus.On("x", b.Handle)

		// 重新求值的方法值无法区分接收者
		bus.Off("x", b.Handle)
		bus.Emit("x", nil)
		assert.Equal(t, 1, a.hits, "a 的订阅不能被误删")
		assert.Equal(t, 1, b.hits)
		assert.Equal(t, 2, bus.Count("x"))
	})

	t.Run("唯一接收者按代码指针移除", func(t *testing.T) {
		bus := NewBus()
		a := &counter{}
		bus.On("x", a.Handle)

		bus.Off("x", a.Handle)
		bus.Emit("x", nil)
		assert.Zero(t, a.hits)
	})

	t.Run("可比较键", func(t *testing.T) {
		bus := NewBus()
		a, b := &counter{}, &counter{}
		bus.Subscribe("x", a.Handle, pkgif.IdentifiedBy(a))
		bus.Subscribe("x", b.Handle, pkgif.IdentifiedBy(b))

		bus.Off("x", b)
		bus.Emit("x", nil)
		assert.Equal(t, 1, a.hits)
		assert.Zero(t, b.hits)

		// 键与函数身份互不匹配
		bus.Off("x", a.Handle)
		bus.Off("x", "cart")
		assert.Equal(t, 1, bus.Count("x"))
	})

	t.Run("同一闭包字面量的不同实例", func(t *testing.T) {
		bus := NewBus()
		hits := map[string]int{}
		mk := func(name string) pkgif.Handler {
			return func(any) { hits[name]++ }
		}
		first, second := mk("first"), mk("second")
		bus.On("x", first)
		bus.On("x", second)

		bus.Off("x", second)
		bus.Emit("x", nil)
		assert.Equal(t, map[string]int{"first": 1}, hits)
	})
}

// ============================================================================
// Clear / Handlers
// ============================================================================

func TestBus_Clear(t *testing.T) {
	newBus := func() (*Bus, *[]string) {
		bus := NewBus()
		got := &[]string{}
		bus.On("a", func(any) { *got = append(*got, "a") })
		bus.On("b", func(any) { *got = append(*got, "b") })
		bus.OnAny(func(ch string, _ any) { *got = append(*got, "*"+ch) })
		return bus, got
	}

	t.Run("指定通道", func(t *testing.T) {
		bus, got := newBus()
		bus.Clear("a")
		bus.Emit("a", nil)
		bus.Emit("b", nil)
		assert.Equal(t, []string{"*a", "b", "*b"}, *got)
	})

	t.Run("全部", func(t *testing.T) {
		bus, got := newBus()
		bus.Clear()
		bus.Emit("a", nil)
		bus.Emit("b", nil)
		assert.Empty(t, *got)
		assert.Empty(t, bus.Handlers())
	})

	t.Run("清空后旧的取消能力仍安全", func(t *testing.T) {
		bus := NewBus()
		unsubscribe := bus.On("a", func(any) {})
		bus.Clear()
		bus.On("a", func(any) {})
		unsubscribe()
		assert.Equal(t, 1, bus.Count("a"))
	})
}

func TestBus_Handlers(t *testing.T) {
	bus := NewBus()
	bus.On("a", func(any) {})
	bus.Once("a", func(any) {})
	bus.OnAny(func(string, any) {})

	snap := bus.Handlers()
	require.Len(t, snap["a"], 2)
	assert.False(t, snap["a"][0].Once)
	assert.True(t, snap["a"][1].Once)
	assert.Len(t, snap[WildcardChannel], 1)
	assert.NotEqual(t, snap["a"][0].ID, snap["a"][1].ID)

	// 修改快照不影响总线
	snap["a"] = nil
	delete(snap, WildcardChannel)
	snap["b"] = []pkgif.SubscriptionInfo{{ID: "fake"}}

	again := bus.Handlers()
	assert.Len(t, again["a"], 2)
	assert.Len(t, again[WildcardChannel], 1)
	assert.NotContains(t, again, "b")
}

// ============================================================================
// 失败隔离
// ============================================================================

func TestBus_HandlerPanicIsolation(t *testing.T) {
	cause := errors.New("boom")

	var reported []error
	bus := NewBus(WithErrorReporter(func(err error) { reported = append(reported, err) }))

	var got []string
	bus.On("x", func(any) { got = append(got, "first") })
	bus.On("x", func(any) { panic(cause) })
	bus.On("x", func(any) { panic("plain string") })
	bus.On("x", func(any) { got = append(got, "last") })

	require.NotPanics(t, func() { bus.Emit("x", nil) })

	assert.Equal(t, []string{"first", "last"}, got)
	require.Len(t, reported, 2)

	assert.ErrorIs(t, reported[0], ErrHandler)
	assert.ErrorIs(t, reported[0], cause)

	var herr *HandlerError
	require.ErrorAs(t, reported[1], &herr)
	assert.Equal(t, "x", herr.Channel)
	assert.Equal(t, "plain string", herr.Value)
	assert.NotErrorIs(t, reported[1], cause)
}

// ============================================================================
// 通配与历史
// ============================================================================

func TestBus_OnAnyRunsAfterChannelHandlers(t *testing.T) {
	bus := NewBus()
	var got []string
	unAny := bus.OnAny(func(ch string, p any) { got = append(got, fmt.Sprintf("*%s=%v", ch, p)) })
	bus.On("x", func(p any) { got = append(got, fmt.Sprintf("x=%v", p)) })

	bus.Emit("x", 1)
	bus.Emit("y", 2)
	unAny()
	bus.Emit("y", 3)

	assert.Equal(t, []string{"x=1", "*x=1", "*y=2"}, got)
}

func TestBus_History(t *testing.T) {
	bus := NewBus(WithHistory(2))
	bus.On("a", func(any) {})

	bus.Emit("a", 1)
	bus.Emit("b", 2)
	bus.Emit("a", 3)

	recent := bus.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Channel)
	assert.Zero(t, recent[0].Delivered)
	assert.Equal(t, 3, recent[1].Payload)
	assert.Equal(t, 1, recent[1].Delivered)
	assert.Less(t, recent[0].Seq, recent[1].Seq)

	assert.Len(t, bus.Recent(1), 1)
	assert.Nil(t, NewBus().Recent(10))
}

type countingObserver struct {
	emits    map[string]int
	failures int
}

func (o *countingObserver) EmitObserved(channel string, delivered int) {
	o.emits[channel] += delivered
}

func (o *countingObserver) HandlerFailed(string) { o.failures++ }

func TestBus_Observer(t *testing.T) {
	obs := &countingObserver{emits: map[string]int{}}
	bus := NewBus(WithObserver(obs), WithDevLogging(true))

	bus.On("a", func(any) {})
	bus.On("a", func(any) { panic("x") })
	bus.Emit("a", nil)
	bus.Emit("b", nil)

	assert.Equal(t, map[string]int{"a": 2, "b": 0}, obs.emits)
	assert.Equal(t, 1, obs.failures)
}
