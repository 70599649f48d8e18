package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，额外处理 nil。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 超时为非正数 -> 使用默认值
//   - 版本策略为空 -> strict
//   - 清单大小上限为非正数 -> 使用默认值
//   - 诊断地址为空 -> 使用默认地址
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	defaults := DefaultFederationConfig()
	if c.Federation.FetchTimeout <= 0 {
		c.Federation.FetchTimeout = defaults.FetchTimeout
	}
	if c.Federation.VersionPolicy == "" {
		c.Federation.VersionPolicy = VersionPolicyStrict
	}
	if c.Federation.MaxManifestBytes <= 0 {
		c.Federation.MaxManifestBytes = defaults.MaxManifestBytes
	}
	if c.Diagnostics.Addr == "" {
		c.Diagnostics.Addr = DefaultDiagnosticsConfig().Addr
	}
	if c.Shared == nil {
		c.Shared = map[string]SharedConfig{}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}
	return c, nil
}

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}
