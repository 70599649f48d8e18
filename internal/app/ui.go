package app

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-fedhost/pkg/events"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
	"github.com/dep2p/go-fedhost/pkg/types"
)

// UIState 界面状态快照
type UIState struct {
	Theme         types.Theme `json:"theme"`
	IsSidebarOpen bool        `json:"isSidebarOpen"`
}

// UI 主题与侧栏状态，初始为浅色主题、侧栏展开
type UI struct {
	bus   pkgif.EventBus
	clock clock.Clock

	mu    sync.RWMutex
	state UIState
}

// NewUI 创建界面状态
func NewUI(bus pkgif.EventBus, opts ...Option) *UI {
	o := applyOptions(opts)
	return &UI{
		bus:   bus,
		clock: o.clock,
		state: UIState{Theme: types.ThemeLight, IsSidebarOpen: true},
	}
}

// ToggleTheme 切换主题并发出 theme:changed，返回新主题
func (u *UI) ToggleTheme() types.Theme {
	u.mu.Lock()
	if u.state.Theme == types.ThemeLight {
		u.state.Theme = types.ThemeDark
	} else {
		u.state.Theme = types.ThemeLight
	}
	theme := u.state.Theme
	u.mu.Unlock()

	u.emit(theme)
	return theme
}

// SetTheme 设置主题；与当前主题相同时不发事件
func (u *UI) SetTheme(theme types.Theme) error {
	if theme != types.ThemeLight && theme != types.ThemeDark {
		return fmt.Errorf("set theme: unknown theme %q", theme)
	}

	u.mu.Lock()
	changed := u.state.Theme != theme
	u.state.Theme = theme
	u.mu.Unlock()

	if changed {
		u.emit(theme)
	}
	return nil
}

// ToggleSidebar 切换侧栏，返回新状态
func (u *UI) ToggleSidebar() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state.IsSidebarOpen = !u.state.IsSidebarOpen
	return u.state.IsSidebarOpen
}

// SetSidebarOpen 设置侧栏状态
func (u *UI) SetSidebarOpen(open bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state.IsSidebarOpen = open
}

// State 返回界面状态快照
func (u *UI) State() UIState {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.state
}

func (u *UI) emit(theme types.Theme) {
	events.Emit(u.bus, events.ThemeChanged, types.ThemeChangedEvent{
		Theme:     theme,
		Timestamp: types.Millis(u.clock.Now()),
	})
}
