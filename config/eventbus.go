package config

import "fmt"

// EventBusConfig 事件总线配置
type EventBusConfig struct {
	// DevLogging 记录每一次发射（开发模式）
	DevLogging bool `json:"dev_logging" yaml:"dev_logging" toml:"dev_logging"`

	// HistorySize 保留的最近发射记录数，0 表示不记录
	HistorySize int `json:"history_size" yaml:"history_size" toml:"history_size"`
}

// DefaultEventBusConfig 返回默认的事件总线配置
func DefaultEventBusConfig() EventBusConfig {
	return EventBusConfig{
		DevLogging:  false,
		HistorySize: 128,
	}
}

// Validate 验证事件总线配置
func (c *EventBusConfig) Validate() error {
	if c.HistorySize < 0 {
		return fmt.Errorf("event_bus: history_size must be >= 0, got %d", c.HistorySize)
	}
	return nil
}
