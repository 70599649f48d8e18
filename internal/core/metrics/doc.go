// Package metrics 提供事件总线与远程解析的监控指标
//
// Collector 同时实现 interfaces.BusObserver 与 interfaces.FederationObserver，
// 由 eventbus 与 federation 模块在 Fx 中自动注入。指标注册在 Collector
// 自己的 prometheus.Registry 上，通过 Handler() 暴露给 /metrics。
//
// # 指标
//
//	fedhost_eventbus_emits_total{channel}            发射次数
//	fedhost_eventbus_deliveries_total{channel}       处理函数调用次数
//	fedhost_eventbus_handler_panics_total{channel}   处理函数 panic 次数
//	fedhost_federation_fetches_total{remote,result}  清单抓取次数
//	fedhost_federation_fetch_duration_seconds{remote}
//	fedhost_federation_module_loads_total{remote,result}
//	fedhost_federation_module_load_duration_seconds{remote}
//	fedhost_federation_version_conflicts_total{library}
//
// # 快照
//
// Snapshot() 返回累计值与最近 60 秒的发射速率，供诊断接口使用：
//
//	c := metrics.NewCollector()
//	bus := eventbus.NewBus(eventbus.WithObserver(c))
//	bus.Emit("theme:changed", nil)
//	fmt.Println(c.Snapshot().Emits) // 1
//
// # 并发安全
//
// 所有方法都是并发安全的。
package metrics
