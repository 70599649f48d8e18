package config

import (
	"fmt"
	"strings"
)

// LogConfig 日志配置
//
// 环境变量 FEDHOST_LOG_LEVEL 可以按子系统覆盖级别，见 internal/util/logger。
type LogConfig struct {
	// Level 默认级别：debug/info/warn/error
	Level string `json:"level" yaml:"level" toml:"level"`

	// Format text 或 json
	Format string `json:"format" yaml:"format" toml:"format"`

	// File 日志文件路径，为空时输出到 stderr
	File string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
}

// DefaultLogConfig 返回默认的日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 验证日志配置
func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Format)
	}
	return nil
}
