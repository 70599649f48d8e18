package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// 环境变量名
const (
	EnvLevel     = "FEDHOST_LOG_LEVEL"
	EnvFormat    = "FEDHOST_LOG_FORMAT"
	EnvAddSource = "FEDHOST_LOG_ADD_SOURCE"
)

// Format 日志输出格式
type Format int

const (
	// FormatText key=value 文本（默认）
	FormatText Format = iota
	// FormatJSON 每行一个 JSON 对象
	FormatJSON
)

// String 返回格式名
func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseFormat 解析格式名（text/json，大小写不敏感）
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text":
		return FormatText, true
	case "json":
		return FormatJSON, true
	default:
		return FormatText, false
	}
}

// EnvSettings 环境变量给出的日志设置
type EnvSettings struct {
	// Default 未单独配置的子系统使用的级别
	Default slog.Level

	// Levels 子系统 → 级别
	Levels map[string]slog.Level

	Format    Format
	AddSource bool

	// FormatSet 环境变量显式指定了格式
	FormatSet bool
}

// LevelFor 返回子系统的初始级别
func (s *EnvSettings) LevelFor(subsystem string) slog.Level {
	if level, ok := s.Levels[subsystem]; ok {
		return level
	}
	return s.Default
}

var (
	envOnce     sync.Once
	envSettings *EnvSettings
)

// FromEnv 读取环境变量（进程内只读一次）
//
//   - FEDHOST_LOG_LEVEL: 子系统=级别,...,默认级别，例如 eventbus=debug,federation=warn,info
//   - FEDHOST_LOG_FORMAT: text 或 json
//   - FEDHOST_LOG_ADD_SOURCE: true/false
func FromEnv() *EnvSettings {
	envOnce.Do(func() {
		envSettings = parseEnv(os.Getenv)
	})
	return envSettings
}

func parseEnv(getenv func(string) string) *EnvSettings {
	s := &EnvSettings{
		Default: slog.LevelInfo,
		Levels:  make(map[string]slog.Level),
	}

	for _, part := range strings.Split(getenv(EnvLevel), ",") {
		name, value, scoped := strings.Cut(strings.TrimSpace(part), "=")
		if !scoped {
			if level, ok := ParseLevel(name); ok {
				s.Default = level
			}
			continue
		}
		if level, ok := ParseLevel(value); ok {
			s.Levels[strings.TrimSpace(name)] = level
		}
	}

	if f, ok := ParseFormat(getenv(EnvFormat)); ok {
		s.Format, s.FormatSet = f, true
	}

	switch strings.ToLower(getenv(EnvAddSource)) {
	case "", "0", "false", "no":
	default:
		s.AddSource = true
	}
	return s
}

// ParseLevel 解析级别名称（debug/info/warn/error）
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func levelName(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}
