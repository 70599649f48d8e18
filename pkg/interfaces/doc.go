// Package interfaces 定义 fedhost 的公共接口
//
// 一个接口文件对应一个实现目录：
//   - eventbus.go   - 事件总线（internal/core/eventbus）
//   - federation.go - 远程解析、共享作用域、容器加载（internal/core/federation）
//
// 观测接口（BusObserver、FederationObserver）由 internal/core/metrics 实现，
// 组件只依赖接口，不依赖指标实现。
package interfaces
