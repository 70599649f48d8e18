// Package fedhost 提供运行时联邦宿主
//
// 宿主在运行时加载独立构建、独立部署的片段（远程），
// 并通过类型化事件总线协调各片段。
//
// # 核心概念
//
//   - EventBus: 进程内发布/订阅，通道名在编译期绑定载荷类型（pkg/events）
//   - Resolver: "<远程名>/<暴露路径>" → 抓取清单、协商共享单例、求值导出
//   - SharedScope: 共享依赖表，每个单例库只激活一个版本
//
// # 快速开始
//
//	host, err := fedhost.New(
//	    fedhost.WithConfigFile("fedhost.yaml"),
//	    fedhost.WithBuiltinRemotes(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := host.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Stop(context.Background())
//
//	// 订阅事件
//	events.On(host.Bus(), events.CartCheckout, func(e types.CartCheckoutEvent) {
//	    fmt.Println("checkout", e.TotalAmount)
//	})
//
//	// 加载远程模块
//	newButton, err := fedhost.Import[remotes.ButtonConstructor](ctx, host, "remoteApp1/Button")
//
// # 失败处理
//
// 远程失败总是以错误返回，不会被吞掉：
//
//	errors.Is(err, fedhost.ErrRemoteUnavailable) // 抓取、解析或求值失败
//	errors.Is(err, fedhost.ErrVersionConflict)   // 共享单例版本不兼容
//
// LoadOrFallback 在失败时返回调用方给出的占位值，同时返回错误。
//
// # 文件组织
//
//   - host.go: Host 入口与加载 API
//   - options.go: 选项
//   - fx.go: 模块组装
//   - errors.go: 错误定义
package fedhost
