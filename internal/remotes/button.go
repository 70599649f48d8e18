package remotes

import (
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fedhost/internal/core/federation"
	"github.com/dep2p/go-fedhost/pkg/events"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

// ============================================================================
//                              remoteApp1
// ============================================================================

// Button remoteApp1 的按钮组件
type Button struct {
	ID    string
	Label string

	bus   pkgif.EventBus
	clock clock.Clock
}

// ButtonConstructor remoteApp1/Button 的导出
type ButtonConstructor func(id, label string) *Button

// Click 发出 button:clicked
func (b *Button) Click() {
	events.Emit(b.bus, events.ButtonClicked, types.ButtonClickedEvent{
		ButtonID:  b.ID,
		Label:     b.Label,
		Timestamp: types.Millis(b.clock.Now()),
	})
}

// Navigate 请求宿主跳转，不直接依赖宿主路由
func (b *Button) Navigate(path string) {
	events.Emit(b.bus, events.NavigationRequest, types.NavigationRequestEvent{
		Path:  path,
		State: map[string]string{"from": RemoteApp1, "button": b.ID},
	})
}

// Render 返回按钮文本，count 来自宿主会话
func (b *Button) Render(count int) string {
	return fmt.Sprintf("[%s: %d]", b.Label, count)
}

// NewRemoteApp1 创建 remoteApp1 容器
func NewRemoteApp1(opts ...Option) *federation.StaticContainer {
	o := applyOptions(opts)
	c := declareShared(federation.NewStaticContainer(RemoteApp1))

	c.Expose("Button", func() (any, error) {
		bus, err := sharedBus(c.Scope())
		if err != nil {
			return nil, err
		}
		return ButtonConstructor(func(id, label string) *Button {
			return &Button{ID: id, Label: label, bus: bus, clock: o.clock}
		}), nil
	})
	return c
}
