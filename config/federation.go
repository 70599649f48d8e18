package config

import (
	"fmt"
	"time"
)

// VersionPolicy 共享单例版本冲突时的处理策略
const (
	// VersionPolicyStrict 冲突即失败（默认）
	VersionPolicyStrict = "strict"

	// VersionPolicyWarn 记录警告并继续使用已激活的实例
	VersionPolicyWarn = "warn"
)

// FederationConfig 远程解析配置
type FederationConfig struct {
	// FetchTimeout 单次清单抓取或模块加载的超时
	FetchTimeout Duration `json:"fetch_timeout" yaml:"fetch_timeout" toml:"fetch_timeout"`

	// VersionPolicy strict 或 warn
	VersionPolicy string `json:"version_policy" yaml:"version_policy" toml:"version_policy"`

	// MaxManifestBytes 清单最大字节数
	MaxManifestBytes int64 `json:"max_manifest_bytes" yaml:"max_manifest_bytes" toml:"max_manifest_bytes"`

	// UserAgent 抓取清单时的 User-Agent
	UserAgent string `json:"user_agent" yaml:"user_agent" toml:"user_agent"`
}

// DefaultFederationConfig 返回默认的远程解析配置
func DefaultFederationConfig() FederationConfig {
	return FederationConfig{
		FetchTimeout:     Duration(10 * time.Second),
		VersionPolicy:    VersionPolicyStrict,
		MaxManifestBytes: 1 << 20,
		UserAgent:        "fedhost/1.0",
	}
}

// Validate 验证远程解析配置
func (c *FederationConfig) Validate() error {
	if c.FetchTimeout.Duration() <= 0 {
		return fmt.Errorf("federation: fetch_timeout must be positive, got %s", c.FetchTimeout)
	}
	switch c.VersionPolicy {
	case VersionPolicyStrict, VersionPolicyWarn:
	default:
		return fmt.Errorf("federation: version_policy must be %q or %q, got %q",
			VersionPolicyStrict, VersionPolicyWarn, c.VersionPolicy)
	}
	if c.MaxManifestBytes <= 0 {
		return fmt.Errorf("federation: max_manifest_bytes must be positive, got %d", c.MaxManifestBytes)
	}
	return nil
}
