package fedhost

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-fedhost/config"
	"github.com/dep2p/go-fedhost/internal/core/eventbus"
	"github.com/dep2p/go-fedhost/internal/core/federation"
	"github.com/dep2p/go-fedhost/internal/core/metrics"
	"github.com/dep2p/go-fedhost/internal/debug/introspect"
	"github.com/dep2p/go-fedhost/internal/util/logger"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

var log = logger.Logger("fedhost")

const (
	// initializeTimeout 初始化超时（Fx App Start）
	initializeTimeout = 30 * time.Second

	// preloadConcurrency Preload 同时抓取的远程数
	preloadConcurrency = 8
)

// Version fedhost 版本
const Version = "0.1.0"

// ════════════════════════════════════════════════════════════════════════════
//                              Host
// ════════════════════════════════════════════════════════════════════════════

// Host 联邦宿主
//
// 持有事件总线、远程解析表与共享依赖表。New 之后即可订阅事件和加载模块；
// Start 启动诊断服务等后台组件，Stop 之后不能再次启动。
type Host struct {
	config *config.Config
	app    *fx.App

	// 由 Fx 注入
	bus        *eventbus.Bus
	resolver   *federation.Resolver
	collector  *metrics.Collector
	introspect *introspect.Server

	logFile *os.File

	mu      sync.Mutex
	started bool
	closed  bool
}

// New 创建宿主但不启动
//
// 示例：
//
//	host, err := fedhost.New(
//	    fedhost.WithRemote("remoteApp1", "http://localhost:5001/remoteEntry1.json"),
//	    fedhost.WithShared("react", "18.3.1", true, nil),
//	)
func New(opts ...Option) (*Host, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	cfg := o.finalConfig()

	h := &Host{config: cfg}

	var err error
	h.app, err = buildFxApp(o, cfg, h)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}

	if err := h.applyLogConfig(); err != nil {
		return nil, err
	}
	return h, nil
}

// Start 启动宿主
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	if h.started {
		return ErrAlreadyStarted
	}

	initCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	if err := h.app.Start(initCtx); err != nil {
		log.Error("宿主启动失败", "err", err)
		return fmt.Errorf("initialize failed: %w", err)
	}
	h.started = true

	log.Info("宿主已启动", "version", Version, "remotes", h.resolver.Remotes(),
		"diagnostics", h.DiagnosticsAddr())
	return nil
}

// Stop 停止宿主并释放资源
//
// 未启动时同样会关闭日志文件；重复调用为空操作。
func (h *Host) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	var err error
	if h.started {
		if serr := h.app.Stop(ctx); serr != nil {
			err = multierr.Append(err, fmt.Errorf("stop fx app: %w", serr))
		}
		h.started = false
	}
	if h.logFile != nil {
		logger.SetOutput(os.Stderr)
		err = multierr.Append(err, h.logFile.Close())
		h.logFile = nil
	}

	if err != nil {
		log.Error("停止宿主失败", "err", err)
		return err
	}
	log.Info("宿主已停止")
	return nil
}

// applyLogConfig 应用日志级别、格式与输出文件
//
// 环境变量 FEDHOST_LOG_LEVEL / FEDHOST_LOG_FORMAT 已设置时以环境变量为准。
func (h *Host) applyLogConfig() error {
	lc := h.config.Log
	if os.Getenv(logger.EnvLevel) == "" {
		if level, ok := logger.ParseLevel(lc.Level); ok {
			logger.SetGlobalLevel(level)
		}
	}
	if !logger.FromEnv().FormatSet {
		if format, ok := logger.ParseFormat(lc.Format); ok {
			logger.SetFormat(format)
		}
	}
	if lc.File == "" {
		return nil
	}
	f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	h.logFile = f
	logger.SetOutput(f)
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件访问
// ════════════════════════════════════════════════════════════════════════════

// Bus 返回事件总线
func (h *Host) Bus() pkgif.EventBus { return h.bus }

// Resolver 返回远程解析表
func (h *Host) Resolver() pkgif.Resolver { return h.resolver }

// Config 返回生效的配置
func (h *Host) Config() *config.Config { return h.config }

// Remotes 返回所有远程的状态
func (h *Host) Remotes() []types.RemoteStatus { return h.resolver.Snapshot() }

// Shared 返回共享依赖记录
func (h *Host) Shared() []types.SharedRecord { return h.resolver.Scope().Records() }

// Stats 返回指标快照
func (h *Host) Stats() metrics.Stats { return h.collector.Snapshot() }

// DiagnosticsAddr 返回诊断服务监听地址，未启用时为空
func (h *Host) DiagnosticsAddr() string {
	if h.introspect == nil {
		return ""
	}
	return h.introspect.Addr()
}

// AddRemote 运行时添加远程
func (h *Host) AddRemote(name, entry string) error {
	rc := config.RemoteConfig{Name: name, Entry: entry}
	if err := rc.Validate(); err != nil {
		return err
	}
	return h.resolver.AddRemote(name, entry)
}

// ════════════════════════════════════════════════════════════════════════════
//                              加载
// ════════════════════════════════════════════════════════════════════════════

// Import 以 "<remote>/<path>" 形式加载远程模块
func (h *Host) Import(ctx context.Context, ref string) (any, error) {
	if h.isClosed() {
		return nil, ErrHostClosed
	}
	return h.resolver.Import(ctx, ref)
}

// Preload 并发解析远程清单；不传名称时解析全部远程
//
// 所有远程都会尝试，失败合并返回。
func (h *Host) Preload(ctx context.Context, names ...string) error {
	if h.isClosed() {
		return ErrHostClosed
	}
	if len(names) == 0 {
		names = h.resolver.Remotes()
	}

	var (
		mu   sync.Mutex
		errs error
	)
	var g errgroup.Group
	g.SetLimit(preloadConcurrency)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if _, err := h.resolver.ResolveRemote(ctx, name); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if errs != nil {
		log.Warn("部分远程预加载失败", "err", errs)
	}
	return errs
}

func (h *Host) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Import 加载远程模块并断言为 T
//
//	newButton, err := fedhost.Import[remotes.ButtonConstructor](ctx, host, "remoteApp1/Button")
func Import[T any](ctx context.Context, h *Host, ref string) (T, error) {
	var zero T
	v, err := h.Import(ctx, ref)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("import %s: %w: got %T, want %T", ref, ErrUnexpectedExport, v, zero)
	}
	return t, nil
}

// LoadOrFallback 加载远程模块，失败时返回 fallback 和错误
//
// 调用方据此渲染占位内容；错误不会被吞掉。
//
//	cart, err := fedhost.LoadOrFallback(ctx, host, "remoteApp2/Cart", placeholder)
//	if err != nil {
//	    log.Warn("cart unavailable", "err", err)
//	}
func LoadOrFallback[T any](ctx context.Context, h *Host, ref string, fallback T) (T, error) {
	v, err := Import[T](ctx, h, ref)
	if err != nil {
		log.Warn("远程模块不可用，使用占位", "ref", ref, "err", err)
		return fallback, err
	}
	return v, nil
}
