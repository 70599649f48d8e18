// Package remotes 提供内置的演示远程容器
//
// 三个容器与一套完整部署中的三个远程一一对应：
//
//	sharedUtils  暴露 eventBus、utils、types
//	remoteApp1   暴露 Button
//	remoteApp2   暴露 Cart
//
// 容器通过 Register 登记到 federation.Registry，由解析表按需加载。
// 每个容器都声明共享单例 "@fedhost/event-bus"，实例由宿主提供，
// 保证所有片段拿到的是同一个事件总线。
//
// cmd/remote-server 使用 Handler 为单个容器提供清单。
package remotes
