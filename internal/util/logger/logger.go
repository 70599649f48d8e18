// Package logger 提供 fedhost 的统一日志系统
//
// 基于标准库 log/slog，每个子系统一个 Logger，级别可以单独调整。
// 初始级别与格式来自环境变量，宿主启动时再按配置文件覆盖：
//
//	var log = logger.Logger("federation")
//
//	log.Info("remote resolved", "remote", name, "exposes", len(desc.Exposes))
//
// 环境变量:
//
//	FEDHOST_LOG_LEVEL=eventbus=debug,info   # eventbus debug，其余 info
//	FEDHOST_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	mu       sync.Mutex
	loggers  = map[string]*slog.Logger{}
	handlers = map[string]*subsystemHandler{}
)

// Logger 获取子系统的 Logger，同名返回同一实例
func Logger(subsystem string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[subsystem]; ok {
		return l
	}
	h := newSubsystemHandler(subsystem, FromEnv().LevelFor(subsystem))
	l := slog.New(h)
	loggers[subsystem] = l
	handlers[subsystem] = h
	return l
}

// SetLevel 调整一个子系统的级别
//
//	logger.SetLevel("eventbus", slog.LevelDebug)
func SetLevel(subsystem string, level slog.Level) {
	mu.Lock()
	h, ok := handlers[subsystem]
	mu.Unlock()
	if ok {
		h.level.Set(level)
	}
}

// SetGlobalLevel 调整所有已创建子系统的级别
func SetGlobalLevel(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	for _, h := range handlers {
		h.level.Set(level)
	}
}

// SetFormat 切换输出格式，已创建的 Logger 同样生效
func SetFormat(f Format) {
	output.setFormat(f)
}

// SetOutput 切换输出目标，已创建的 Logger 同样生效
//
//	file, _ := os.OpenFile("fedhost.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
//	logger.SetOutput(file)
func SetOutput(w io.Writer) {
	output.setOutput(w)
}

// Discard 返回丢弃所有日志的 Logger，测试中使用
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}
