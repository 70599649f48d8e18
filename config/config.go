// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义，并各自提供 Default*Config 与 Validate
//   - 支持从 JSON / YAML / TOML 加载（LoadFile 按扩展名选择）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.EventBus.DevLogging = true
//	cfg.Remotes = append(cfg.Remotes, config.RemoteConfig{
//	    Name:  "remoteApp1",
//	    Entry: "http://localhost:5001/remoteEntry1.json",
//	})
//
//	// 从文件加载
//	cfg, err := config.LoadFile("fedhost.yaml")
package config

import (
	"go.uber.org/multierr"
)

// Config 是 fedhost 的完整配置结构
//
// 配置按照功能模块组织：
//   - EventBus: 事件总线（开发日志、历史记录）
//   - Federation: 远程解析（抓取超时、版本冲突策略）
//   - Remotes: 远程表（名称 → 入口地址）
//   - Shared: 宿主提供的共享依赖
//   - Diagnostics: 诊断服务
//   - Log: 日志
type Config struct {
	// EventBus 事件总线配置
	EventBus EventBusConfig `json:"event_bus" yaml:"event_bus" toml:"event_bus"`

	// Federation 远程解析配置
	Federation FederationConfig `json:"federation" yaml:"federation" toml:"federation"`

	// Remotes 远程表
	Remotes []RemoteConfig `json:"remotes,omitempty" yaml:"remotes,omitempty" toml:"remotes,omitempty"`

	// Shared 宿主声明的共享依赖（库名 → 版本信息）
	Shared map[string]SharedConfig `json:"shared,omitempty" yaml:"shared,omitempty" toml:"shared,omitempty"`

	// Diagnostics 诊断服务配置
	Diagnostics DiagnosticsConfig `json:"diagnostics" yaml:"diagnostics" toml:"diagnostics"`

	// Log 日志配置
	Log LogConfig `json:"log" yaml:"log" toml:"log"`
}

// NewConfig 创建默认配置
//
// 默认配置不含任何远程，Validate 可以直接通过。
func NewConfig() *Config {
	return &Config{
		EventBus:    DefaultEventBusConfig(),
		Federation:  DefaultFederationConfig(),
		Shared:      map[string]SharedConfig{},
		Diagnostics: DefaultDiagnosticsConfig(),
		Log:         DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
//
// 所有子配置都会被检查，错误合并返回（multierr）。
func (c *Config) Validate() error {
	var err error
	err = multierr.Append(err, c.EventBus.Validate())
	err = multierr.Append(err, c.Federation.Validate())
	err = multierr.Append(err, validateRemotes(c.Remotes))
	for name, shared := range c.Shared {
		err = multierr.Append(err, shared.Validate(name))
	}
	err = multierr.Append(err, c.Diagnostics.Validate())
	err = multierr.Append(err, c.Log.Validate())
	return err
}

// RemoteTable 返回 名称 → 入口地址 映射
func (c *Config) RemoteTable() map[string]string {
	table := make(map[string]string, len(c.Remotes))
	for _, r := range c.Remotes {
		table[r.Name] = r.Entry
	}
	return table
}
