package eventbus

import (
	"github.com/benbjohnson/clock"

	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

// Option 总线构造选项
type Option func(*Bus)

// WithClock 设置时钟（测试中使用 clock.NewMock）
func WithClock(c clock.Clock) Option {
	return func(b *Bus) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithErrorReporter 设置处理函数失败回调
func WithErrorReporter(r pkgif.ErrorReporter) Option {
	return func(b *Bus) {
		b.reporter = r
	}
}

// WithObserver 设置观测者（指标）
func WithObserver(o pkgif.BusObserver) Option {
	return func(b *Bus) {
		b.observer = o
	}
}

// WithHistory 保留最近 size 次发射记录，0 表示关闭
func WithHistory(size int) Option {
	return func(b *Bus) {
		b.history = newHistory(size)
	}
}

// WithDevLogging 以 Info 级别记录每一次发射
func WithDevLogging(enabled bool) Option {
	return func(b *Bus) {
		b.devLogging = enabled
	}
}
