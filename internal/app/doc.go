// Package app 提供宿主应用状态
//
// 宿主与各远程片段只通过事件总线交互，本包中的状态对象都以 pkg/events 的
// 类型化通道收发事件，不直接引用远程片段：
//
//   - Navigator: 路由历史，响应 navigation:request / navigation:navigate，发出 navigation:complete
//   - Session:   用户会话，发出 user:login / user:logout
//   - UI:        主题与侧栏，发出 theme:changed
//   - Cart:      购物车，发出 cart:*，收到 user:logout 时以 logout 原因清空
//   - Notifier:  通知列表，发出 notification:show，响应 notification:dismiss
//
// 所有状态对象都是并发安全的；事件在释放锁之后发出，处理函数可以重入读取状态。
//
// Run 负责进程级的启动、信号等待与优雅停止。
package app
