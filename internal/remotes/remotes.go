package remotes

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/dep2p/go-fedhost/internal/core/federation"
	"github.com/dep2p/go-fedhost/internal/util/logger"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

var log = logger.Logger("remotes")

// 远程名
const (
	SharedUtils = "sharedUtils"
	RemoteApp1  = "remoteApp1"
	RemoteApp2  = "remoteApp2"
)

// 共享库
const (
	// EventBusLibrary 事件总线共享库名
	EventBusLibrary = "@fedhost/event-bus"

	// EventBusVersion 宿主提供的事件总线版本
	EventBusVersion = "1.0.0"

	// ReactVersion 各片段声明的 UI 运行时版本，只参与版本协商
	ReactVersion = "18.3.1"
)

// ErrNoSharedBus 共享作用域中没有可用的事件总线实例
var ErrNoSharedBus = errors.New("shared event bus unavailable")

// DefaultEntries 本地开发时各远程的清单地址
var DefaultEntries = map[string]string{
	RemoteApp1:  "http://localhost:5001/remoteEntry1.json",
	RemoteApp2:  "http://localhost:5002/remoteEntry2.json",
	SharedUtils: "http://localhost:5003/sharedEntry1.json",
}

// Option 容器选项
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock 设置组件使用的时钟
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

// ============================================================================
//                              容器
// ============================================================================

// New 按远程名创建容器
func New(name string, opts ...Option) (*federation.StaticContainer, error) {
	switch name {
	case SharedUtils:
		return NewSharedUtils(opts...), nil
	case RemoteApp1:
		return NewRemoteApp1(opts...), nil
	case RemoteApp2:
		return NewRemoteApp2(opts...), nil
	default:
		return nil, fmt.Errorf("unknown built-in remote %q", name)
	}
}

// Names 返回内置远程名
func Names() []string {
	return []string{RemoteApp1, RemoteApp2, SharedUtils}
}

// Register 把全部内置容器登记到注册表
func Register(reg *federation.Registry, opts ...Option) error {
	var err error
	for _, name := range Names() {
		c, cerr := New(name, opts...)
		if cerr != nil {
			err = multierr.Append(err, cerr)
			continue
		}
		err = multierr.Append(err, reg.Register(name, c))
	}
	return err
}

// declareShared 各容器共同声明的共享库
func declareShared(c *federation.StaticContainer) *federation.StaticContainer {
	return c.
		Share(EventBusLibrary, EventBusVersion, true, nil).
		Share("react", ReactVersion, true, nil).
		Share("react-dom", ReactVersion, true, nil)
}

// sharedBus 从容器的共享作用域取得事件总线
func sharedBus(scope pkgif.ShareScope) (pkgif.EventBus, error) {
	if scope == nil {
		return nil, fmt.Errorf("%w: container not initialised", ErrNoSharedBus)
	}
	v, err := scope.Negotiate(EventBusLibrary, "^"+EventBusVersion)
	if err != nil {
		return nil, err
	}
	bus, ok := v.(pkgif.EventBus)
	if !ok || bus == nil {
		return nil, fmt.Errorf("%w: got %T", ErrNoSharedBus, v)
	}
	return bus, nil
}
