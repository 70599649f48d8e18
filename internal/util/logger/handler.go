package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// ============================================================================
//                              输出端
// ============================================================================

// sink 所有子系统共享的输出端
//
// 输出目标与格式都可以在运行时切换；格式变化时 gen 递增，
// 各 Handler 在下一次写入时按新格式重建。
type sink struct {
	mu        sync.RWMutex
	out       io.Writer
	format    Format
	addSource bool
	gen       uint64
}

var output = newSink()

func newSink() *sink {
	env := FromEnv()
	return &sink{out: os.Stderr, format: env.Format, addSource: env.AddSource}
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.RLock()
	w := s.out
	s.mu.RUnlock()
	return w.Write(p)
}

func (s *sink) setOutput(w io.Writer) {
	s.mu.Lock()
	s.out = w
	s.mu.Unlock()
}

func (s *sink) setFormat(f Format) {
	s.mu.Lock()
	if s.format != f {
		s.format = f
		s.gen++
	}
	s.mu.Unlock()
}

func (s *sink) current() (Format, bool, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.format, s.addSource, s.gen
}

// build 按当前格式创建底层 Handler
func (s *sink) build(level slog.Leveler) (slog.Handler, uint64) {
	format, addSource, gen := s.current()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "ts"
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelName(lvl))
				}
			}
			return a
		},
	}
	if format == FormatJSON {
		return slog.NewJSONHandler(s, opts), gen
	}
	return slog.NewTextHandler(s, opts), gen
}

// ============================================================================
//                              子系统 Handler
// ============================================================================

// derive 记录 WithAttrs/WithGroup，重建时按顺序重放
type derive func(slog.Handler) slog.Handler

// subsystemHandler 带子系统属性与独立级别的 Handler
//
// 派生出的 Handler 共享同一个 LevelVar，SetLevel 对它们同时生效。
type subsystemHandler struct {
	subsystem string
	level     *slog.LevelVar
	chain     []derive

	mu    sync.Mutex
	gen   uint64
	inner slog.Handler
}

func newSubsystemHandler(subsystem string, level slog.Level) *subsystemHandler {
	lv := new(slog.LevelVar)
	lv.Set(level)
	return &subsystemHandler{subsystem: subsystem, level: lv}
}

func (h *subsystemHandler) handler() slog.Handler {
	_, _, gen := output.current()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inner != nil && h.gen == gen {
		return h.inner
	}
	inner, gen := output.build(h.level)
	inner = inner.WithAttrs([]slog.Attr{slog.String("subsystem", h.subsystem)})
	for _, d := range h.chain {
		inner = d(inner)
	}
	h.inner, h.gen = inner, gen
	return inner
}

func (h *subsystemHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *subsystemHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler().Handle(ctx, r)
}

func (h *subsystemHandler) with(d derive) *subsystemHandler {
	chain := make([]derive, len(h.chain), len(h.chain)+1)
	copy(chain, h.chain)
	return &subsystemHandler{
		subsystem: h.subsystem,
		level:     h.level,
		chain:     append(chain, d),
	}
}

func (h *subsystemHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *subsystemHandler) WithGroup(name string) slog.Handler {
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
