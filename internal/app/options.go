package app

import (
	"github.com/benbjohnson/clock"
)

// Option 状态对象选项
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock 设置事件时间戳使用的时钟
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
