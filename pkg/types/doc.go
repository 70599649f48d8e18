// Package types 定义 fedhost 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 fedhost 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - events.go     - 事件总线各通道的载荷类型（user/cart/theme/notification/navigation/button）
//   - federation.go - 远程模块引用、远程描述、共享依赖记录与加载状态
//   - errors.go     - 公共错误定义
//
// # 载荷约定
//
// 载荷的 JSON 字段名与事件目录保持一致（camelCase），
// 时间戳为 Unix 毫秒（与浏览器端 Date.now() 一致），使用 Millis 生成。
package types
