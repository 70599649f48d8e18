package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

const namespace = "fedhost"

// 确保实现接口
var (
	_ pkgif.BusObserver        = (*Collector)(nil)
	_ pkgif.FederationObserver = (*Collector)(nil)
)

// ============================================================================
// Collector - 指标收集器
// ============================================================================

// Collector 收集事件总线与远程解析指标
type Collector struct {
	registry *prometheus.Registry

	emits      *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	panics     *prometheus.CounterVec

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	loads         *prometheus.CounterVec
	loadDuration  *prometheus.HistogramVec
	conflicts     *prometheus.CounterVec

	emitRate *RateMeter

	totals struct {
		emits, deliveries, panics     atomic.Int64
		fetches, fetchFailures        atomic.Int64
		loads, loadFailures, conflict atomic.Int64
	}
}

// Option Collector 选项
type Option func(*collectorOptions)

type collectorOptions struct {
	clock          clock.Clock
	runtimeMetrics bool
}

// WithClock 设置速率窗口使用的时钟
func WithClock(c clock.Clock) Option {
	return func(o *collectorOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRuntimeMetrics 同时注册 Go 运行时与进程指标
func WithRuntimeMetrics() Option {
	return func(o *collectorOptions) { o.runtimeMetrics = true }
}

// NewCollector 创建指标收集器
func NewCollector(opts ...Option) *Collector {
	o := collectorOptions{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		emits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "emits_total",
			Help:      "Total events emitted per channel.",
		}, []string{"channel"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "deliveries_total",
			Help:      "Total handler invocations per channel.",
		}, []string{"channel"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "handler_panics_total",
			Help:      "Total handler panics per channel.",
		}, []string{"channel"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "federation",
			Name:      "fetches_total",
			Help:      "Total remote manifest fetches.",
		}, []string{"remote", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "federation",
			Name:      "fetch_duration_seconds",
			Help:      "Remote manifest fetch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"remote"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "federation",
			Name:      "module_loads_total",
			Help:      "Total exposed module loads.",
		}, []string{"remote", "result"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "federation",
			Name:      "module_load_duration_seconds",
			Help:      "Exposed module load duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"remote"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "federation",
			Name:      "version_conflicts_total",
			Help:      "Total shared singleton version conflicts per library.",
		}, []string{"library"}),
		emitRate: NewRateMeter(o.clock),
	}

	c.registry.MustRegister(
		c.emits, c.deliveries, c.panics,
		c.fetches, c.fetchDuration, c.loads, c.loadDuration, c.conflicts,
	)
	if o.runtimeMetrics {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// ============================================================================
// BusObserver
// ============================================================================

// EmitObserved 记录一次发射
func (c *Collector) EmitObserved(channel string, delivered int) {
	c.emits.WithLabelValues(channel).Inc()
	c.deliveries.WithLabelValues(channel).Add(float64(delivered))
	c.emitRate.Add(1)

	c.totals.emits.Add(1)
	c.totals.deliveries.Add(int64(delivered))
}

// HandlerFailed 记录处理函数 panic
func (c *Collector) HandlerFailed(channel string) {
	c.panics.WithLabelValues(channel).Inc()
	c.totals.panics.Add(1)
}

// ============================================================================
// FederationObserver
// ============================================================================

// RemoteFetched 记录一次清单抓取
func (c *Collector) RemoteFetched(remote string, err error, elapsed time.Duration) {
	c.fetches.WithLabelValues(remote, result(err)).Inc()
	c.fetchDuration.WithLabelValues(remote).Observe(elapsed.Seconds())

	c.totals.fetches.Add(1)
	if err != nil {
		c.totals.fetchFailures.Add(1)
	}
}

// ModuleLoaded 记录一次模块加载
func (c *Collector) ModuleLoaded(remote, _ string, err error, elapsed time.Duration) {
	c.loads.WithLabelValues(remote, result(err)).Inc()
	c.loadDuration.WithLabelValues(remote).Observe(elapsed.Seconds())

	c.totals.loads.Add(1)
	if err != nil {
		c.totals.loadFailures.Add(1)
	}
}

// VersionConflict 记录一次版本冲突
func (c *Collector) VersionConflict(library string) {
	c.conflicts.WithLabelValues(library).Inc()
	c.totals.conflict.Add(1)
}

// ============================================================================
// 导出
// ============================================================================

// Snapshot 返回指标快照
func (c *Collector) Snapshot() Stats {
	return Stats{
		Emits:            c.totals.emits.Load(),
		Deliveries:       c.totals.deliveries.Load(),
		HandlerPanics:    c.totals.panics.Load(),
		EmitRate:         c.emitRate.Rate(),
		Fetches:          c.totals.fetches.Load(),
		FetchFailures:    c.totals.fetchFailures.Load(),
		ModuleLoads:      c.totals.loads.Load(),
		ModuleFailures:   c.totals.loadFailures.Load(),
		VersionConflicts: c.totals.conflict.Load(),
	}
}

// Registry 返回指标注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 Prometheus 文本格式的 HTTP 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
