package config

import (
	"fmt"
	"net"
)

// DiagnosticsConfig 诊断服务配置
//
// 启用后在 Addr 上提供 /health、/debug/introspect/*、/metrics 与 pprof。
type DiagnosticsConfig struct {
	// Enabled 是否启动诊断服务
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`

	// Addr 监听地址，默认只监听本机
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// EnableStream 是否提供 websocket 事件流
	EnableStream bool `json:"enable_stream" yaml:"enable_stream" toml:"enable_stream"`
}

// DefaultDiagnosticsConfig 返回默认的诊断服务配置
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{
		Enabled:      false,
		Addr:         "127.0.0.1:6060",
		EnableStream: true,
	}
}

// Validate 验证诊断服务配置
func (c *DiagnosticsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("diagnostics: invalid addr %q: %w", c.Addr, err)
	}
	return nil
}
