package fedhost

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-fedhost/config"
	"github.com/dep2p/go-fedhost/internal/core/federation"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置（WithConfig / WithConfigFile）
	config *config.Config

	// 覆盖项，在基础配置确定之后应用
	remotes       []config.RemoteConfig
	devLogging    *bool
	versionPolicy string
	diagnostics   struct {
		enable *bool
		addr   string
		stream *bool
	}
	logFile string

	// 注入能力
	clock          clock.Clock
	fetcher        pkgif.ManifestFetcher
	loader         pkgif.ContainerLoader
	errorReporter  pkgif.ErrorReporter
	builtinRemotes bool
	shared         []federation.SharedProvision

	// 用户扩展
	userFxOptions []fx.Option
	verboseFx     bool
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// finalConfig 把覆盖项应用到基础配置上
func (o *options) finalConfig() *config.Config {
	cfg := o.config
	cfg.Remotes = append(cfg.Remotes, o.remotes...)
	if o.devLogging != nil {
		cfg.EventBus.DevLogging = *o.devLogging
	}
	if o.versionPolicy != "" {
		cfg.Federation.VersionPolicy = o.versionPolicy
	}
	if o.diagnostics.enable != nil {
		cfg.Diagnostics.Enabled = *o.diagnostics.enable
	}
	if o.diagnostics.addr != "" {
		cfg.Diagnostics.Addr = o.diagnostics.addr
	}
	if o.diagnostics.stream != nil {
		cfg.Diagnostics.EnableStream = *o.diagnostics.stream
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	return cfg
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用给定的配置作为基础配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config cannot be nil")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从文件加载基础配置（.json / .yaml / .yml / .toml）
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		o.config = cfg
		return nil
	}
}

// WithRemote 添加一个远程
//
//	fedhost.WithRemote("remoteApp1", "http://localhost:5001/remoteEntry1.json")
func WithRemote(name, entry string) Option {
	return func(o *options) error {
		rc := config.RemoteConfig{Name: name, Entry: entry}
		if err := rc.Validate(); err != nil {
			return err
		}
		o.remotes = append(o.remotes, rc)
		return nil
	}
}

// WithVersionPolicy 设置共享单例版本冲突策略（strict / warn）
func WithVersionPolicy(policy string) Option {
	return func(o *options) error {
		if policy != config.VersionPolicyStrict && policy != config.VersionPolicyWarn {
			return fmt.Errorf("unknown version policy %q", policy)
		}
		o.versionPolicy = policy
		return nil
	}
}

// WithDevLogging 记录每一次事件发射
func WithDevLogging(enable bool) Option {
	return func(o *options) error {
		o.devLogging = &enable
		return nil
	}
}

// WithDiagnostics 启用诊断服务
//
// addr 为空时使用配置中的地址。
func WithDiagnostics(addr string, stream bool) Option {
	return func(o *options) error {
		enable := true
		o.diagnostics.enable = &enable
		o.diagnostics.addr = addr
		o.diagnostics.stream = &stream
		return nil
	}
}

// WithLogFile 把日志写入文件
func WithLogFile(path string) Option {
	return func(o *options) error {
		o.logFile = path
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              注入能力
// ════════════════════════════════════════════════════════════════════════════

// WithClock 设置时钟（测试中使用 clock.NewMock）
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithFetcher 替换清单抓取器
func WithFetcher(f pkgif.ManifestFetcher) Option {
	return func(o *options) error {
		o.fetcher = f
		return nil
	}
}

// WithLoader 替换容器加载器，与 WithBuiltinRemotes 互斥
func WithLoader(l pkgif.ContainerLoader) Option {
	return func(o *options) error {
		o.loader = l
		return nil
	}
}

// WithBuiltinRemotes 使用内置的演示容器（sharedUtils、remoteApp1、remoteApp2）
func WithBuiltinRemotes() Option {
	return func(o *options) error {
		o.builtinRemotes = true
		return nil
	}
}

// WithErrorReporter 接收事件处理函数的失败
func WithErrorReporter(r pkgif.ErrorReporter) Option {
	return func(o *options) error {
		o.errorReporter = r
		return nil
	}
}

// WithShared 由宿主提供一个共享库
//
// factory 为空时该版本只参与版本协商。
func WithShared(name, version string, singleton bool, factory pkgif.Factory) Option {
	return func(o *options) error {
		if !federation.ValidVersion(version) {
			return fmt.Errorf("shared %s: invalid version %q", name, version)
		}
		o.shared = append(o.shared, federation.SharedProvision{
			Name:      name,
			Version:   version,
			Singleton: singleton,
			Factory:   factory,
		})
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}

// WithVerboseFx 输出 Fx 自身的事件日志
func WithVerboseFx() Option {
	return func(o *options) error {
		o.verboseFx = true
		return nil
	}
}
