// Package eventbus 实现进程内同步事件总线
//
// 片段之间通过同一个总线实例交换短暂通知（登出、主题切换、导航请求、购物车变更），
// 互相不引用对方的内部状态。特性：
//   - 字符串通道名索引，类型安全由 pkg/events 的 Channel[T] 在编译期保证
//   - Emit 同步执行，按注册顺序调用处理函数
//   - 单个处理函数 panic 被隔离，不影响同一次发射中的其余处理函数
//   - 处理函数内可以再次 Emit、订阅或取消订阅
//   - 可选的发射历史（LRU）与开发日志
//
// # 快速开始
//
//	bus := eventbus.NewBus()
//
//	unsubscribe := bus.On("user:logout", func(payload any) {
//	    evt := payload.(types.UserLogoutEvent)
//	    // ...
//	})
//	defer unsubscribe()
//
//	bus.Emit("user:logout", types.UserLogoutEvent{UserID: "u1", Timestamp: 1000})
//
// # 语义
//
// 快照：每次 Emit 开始时取该通道订阅列表的快照，处理函数中新增的订阅不会收到本次事件。
// 每个处理函数调用前检查存活标记，本次发射过程中被取消的订阅不会再被调用。
//
// 去重：不做去重。同一个函数注册两次得到两个独立订阅，Off 每次移除最早的一个。
//
// Once：调用前先以 CAS 标记已触发并注销，重入的 Emit 不会让它触发第二次。
//
// # Fx 模块
//
//	app := fx.New(
//	    eventbus.Module(),
//	    fx.Invoke(func(bus pkgif.EventBus) {
//	        bus.On("theme:changed", onTheme)
//	    }),
//	)
//
// # 并发安全
//
// 订阅表由 sync.RWMutex 保护，采用写时复制，调用处理函数时从不持锁。
// 存活与触发标记使用 atomic.Bool。
package eventbus
