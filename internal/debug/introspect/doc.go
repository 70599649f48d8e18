// Package introspect 提供本地诊断 HTTP 服务
//
// 该服务运行在本地端口，以 JSON 返回事件总线、远程解析表与共享依赖的状态，
// 用于调试片段间的交互。默认绑定到 127.0.0.1，不暴露到网络。
//
// # 端点
//
//	GET  /health                          - 健康检查
//	GET  /debug/introspect                - 完整诊断报告
//	GET  /debug/introspect/eventbus       - 订阅快照与最近发射（?recent=N）
//	GET  /debug/introspect/remotes        - 远程状态与已缓存清单
//	GET  /debug/introspect/shared         - 共享依赖活跃实例
//	GET  /debug/introspect/runtime        - Go 运行时信息
//	POST /debug/introspect/emit?channel=  - 按目录解码请求体并发射
//	GET  /debug/introspect/events/ws      - websocket 实时事件流
//	GET  /metrics                         - Prometheus 指标
//	GET  /debug/pprof/*                   - Go pprof 端点
//
// # 使用示例
//
//	server := introspect.New(introspect.Config{
//	    Addr:     "127.0.0.1:6060",
//	    Bus:      bus,
//	    Resolver: resolver,
//	})
//	server.Start(ctx)
//	defer server.Stop()
//
// # 安全
//
// emit 端点可以向总线注入任意目录内事件，只应在开发环境开启。
// 如果需要远程访问，请确保配置适当的访问控制。
package introspect
