package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fedhost/internal/core/eventbus"
	"github.com/dep2p/go-fedhost/internal/core/federation"
	"github.com/dep2p/go-fedhost/internal/core/metrics"
	"github.com/dep2p/go-fedhost/internal/util/logger"
	"github.com/dep2p/go-fedhost/pkg/events"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

var log = logger.Logger("introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// defaultRecent eventbus 端点默认返回的历史条数
const defaultRecent = 50

// maxEmitBody emit 请求体上限
const maxEmitBody = 64 << 10

// ============================================================================
//                              配置
// ============================================================================

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// Bus 可选的事件总线
	Bus *eventbus.Bus

	// Resolver 可选的远程解析表
	Resolver *federation.Resolver

	// Collector 可选的指标收集器
	Collector *metrics.Collector

	// EnableStream 是否提供 websocket 事件流
	EnableStream bool

	// Clock 时钟，默认系统时钟
	Clock clock.Clock
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地诊断 HTTP 服务
type Server struct {
	config Config
	clock  clock.Clock
	stream *streamHub

	// HTTP 服务器
	server   *http.Server
	listener net.Listener

	// 状态
	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建诊断服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	s := &Server{
		config:    cfg,
		clock:     clk,
		startTime: clk.Now(),
	}
	if cfg.EnableStream && cfg.Bus != nil {
		s.stream = newStreamHub(cfg.Bus, clk)
	}
	return s
}

// Handler 返回全部端点的路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	// 诊断端点
	mux.HandleFunc("/debug/introspect", s.handleIntrospect)
	mux.HandleFunc("/debug/introspect/eventbus", s.handleEventBus)
	mux.HandleFunc("/debug/introspect/remotes", s.handleRemotes)
	mux.HandleFunc("/debug/introspect/shared", s.handleShared)
	mux.HandleFunc("/debug/introspect/runtime", s.handleRuntime)
	mux.HandleFunc("/debug/introspect/emit", s.handleEmit)
	if s.stream != nil {
		mux.HandleFunc("/debug/introspect/events/ws", s.stream.handle)
	}

	if s.config.Collector != nil {
		mux.Handle("/metrics", s.config.Collector.Handler())
	}

	// pprof 端点
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return mux
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("诊断服务异常退出", "error", err)
		}
	}()

	s.running = true
	s.startTime = s.clock.Now()
	log.Info("诊断服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		s.stream.close()
	}
	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error("关闭诊断服务失败", "error", err)
		return err
	}

	s.running = false
	log.Info("诊断服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// IntrospectResponse 完整诊断响应
type IntrospectResponse struct {
	Timestamp time.Time            `json:"timestamp"`
	Uptime    string               `json:"uptime"`
	EventBus  *EventBusInfo        `json:"eventbus,omitempty"`
	Remotes   []types.RemoteStatus `json:"remotes,omitempty"`
	Shared    []types.SharedRecord `json:"shared,omitempty"`
	Metrics   *metrics.Stats       `json:"metrics,omitempty"`
	Runtime   *RuntimeInfo         `json:"runtime"`
}

// EventBusInfo 事件总线信息
type EventBusInfo struct {
	Channels      int                                 `json:"channels"`
	Subscriptions int                                 `json:"subscriptions"`
	Handlers      map[string][]pkgif.SubscriptionInfo `json:"handlers,omitempty"`
	Recent        []eventbus.Record                   `json:"recent,omitempty"`
}

// RemotesInfo 远程解析表信息
type RemotesInfo struct {
	Remotes     []types.RemoteStatus      `json:"remotes"`
	Descriptors []*types.RemoteDescriptor `json:"descriptors"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// EmitResponse emit 端点响应
type EmitResponse struct {
	Channel   string `json:"channel"`
	Delivered int    `json:"subscribers"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

// handleIntrospect 处理完整诊断请求
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	response := IntrospectResponse{
		Timestamp: s.clock.Now(),
		Uptime:    s.clock.Since(s.startTime).String(),
		EventBus:  s.collectEventBusInfo(false, 0),
		Runtime:   collectRuntimeInfo(),
	}
	if res := s.config.Resolver; res != nil {
		response.Remotes = res.Snapshot()
		response.Shared = res.Scope().Records()
	}
	if c := s.config.Collector; c != nil {
		stats := c.Snapshot()
		response.Metrics = &stats
	}

	s.writeJSON(w, response)
}

// handleEventBus 处理订阅快照请求
func (s *Server) handleEventBus(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	recent := defaultRecent
	if v := r.URL.Query().Get("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid recent", http.StatusBadRequest)
			return
		}
		recent = n
	}

	info := s.collectEventBusInfo(true, recent)
	if info == nil {
		http.Error(w, "Event bus not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, info)
}

// handleRemotes 处理远程状态请求
func (s *Server) handleRemotes(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	res := s.config.Resolver
	if res == nil {
		http.Error(w, "Resolver not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, RemotesInfo{
		Remotes:     res.Snapshot(),
		Descriptors: res.Descriptors(),
	})
}

// handleShared 处理共享依赖请求
func (s *Server) handleShared(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	res := s.config.Resolver
	if res == nil {
		http.Error(w, "Resolver not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, res.Scope().Records())
}

// handleRuntime 处理运行时信息请求
func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, collectRuntimeInfo())
}

// handleEmit 按目录类型解码请求体并发射
func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	bus := s.config.Bus
	if bus == nil {
		http.Error(w, "Event bus not available", http.StatusServiceUnavailable)
		return
	}

	channel := r.URL.Query().Get("channel")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEmitBody))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	payload, err := events.Decode(channel, body)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, types.ErrUnknownChannel) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	subscribers := bus.Count(channel)
	bus.Emit(channel, payload)
	log.Debug("诊断接口发射事件", "channel", channel, "subscribers", subscribers)

	s.writeJSON(w, EmitResponse{Channel: channel, Delivered: subscribers})
}

// handleHealth 处理健康检查请求
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	health := HealthResponse{
		Status:    "ok",
		Timestamp: s.clock.Now(),
		Uptime:    s.clock.Since(s.startTime).String(),
	}

	// 检查核心组件
	if s.config.Bus == nil || s.config.Resolver == nil {
		health.Status = "degraded"
	}

	s.writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

// collectEventBusInfo 收集事件总线信息
func (s *Server) collectEventBusInfo(detail bool, recent int) *EventBusInfo {
	bus := s.config.Bus
	if bus == nil {
		return nil
	}

	handlers := bus.Handlers()
	info := &EventBusInfo{Channels: len(handlers)}
	for _, subs := range handlers {
		info.Subscriptions += len(subs)
	}
	if detail {
		info.Handlers = handlers
		if recent > 0 {
			info.Recent = bus.Recent(recent)
		}
	}
	return info
}

// collectRuntimeInfo 收集运行时信息
func collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// ============================================================================
//                              辅助方法
// ============================================================================

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// writeJSON 写入 JSON 响应
func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		log.Error("JSON 编码失败", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
