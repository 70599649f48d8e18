package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dep2p/go-fedhost"
	"github.com/dep2p/go-fedhost/internal/app"
	"github.com/dep2p/go-fedhost/internal/remotes"
	"github.com/dep2p/go-fedhost/pkg/events"
	"github.com/dep2p/go-fedhost/pkg/types"
)

// shell 宿主外壳：持有宿主状态，加载远程组件并驱动一次演示流程
type shell struct {
	host *fedhost.Host

	nav      *app.Navigator
	session  *app.Session
	ui       *app.UI
	notifier *app.Notifier
	scope    *events.Scope

	cart *remotes.CartView
}

func newShell(host *fedhost.Host) *shell {
	bus := host.Bus()
	s := &shell{
		host:     host,
		nav:      app.NewNavigator(bus),
		session:  app.NewSession(bus),
		ui:       app.NewUI(bus),
		notifier: app.NewNotifier(bus),
		scope:    events.NewScope(bus),
	}

	events.Listen(s.scope, events.NavigationComplete, func(e types.NavigationCompleteEvent) {
		fmt.Printf("🧭 当前路由: %s\n", e.Path)
	})
	events.Listen(s.scope, events.ButtonClicked, func(e types.ButtonClickedEvent) {
		s.notifier.Show(fmt.Sprintf("%s clicked", e.Label), types.NotificationInfo, 3*time.Second)
	})
	events.Listen(s.scope, events.CartCheckout, func(e types.CartCheckoutEvent) {
		fmt.Printf("🛒 结算: %d 件，共 $%.2f\n", e.ItemCount, e.TotalAmount)
		s.notifier.Show("Checkout complete", types.NotificationSuccess, 5*time.Second)
	})
	events.Listen(s.scope, events.NotificationShow, func(e types.NotificationShowEvent) {
		fmt.Printf("🔔 [%s] %s\n", e.Type, e.Message)
	})
	return s
}

// Start 启动宿主并运行演示流程；远程不可用时渲染占位内容
func (s *shell) Start(ctx context.Context) (err error) {
	if err := s.host.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = s.Stop(context.Background())
		}
	}()

	if err := s.host.Preload(ctx); err != nil {
		log.Warn("部分远程不可用", "err", err)
	}
	for _, st := range s.host.Remotes() {
		fmt.Printf("🌐 %-12s %-10s %s\n", st.Name, st.State, st.EntryURL)
	}

	if err := s.session.SetUser(app.User{ID: "demo", Name: "Demo User", Email: "demo@example.com"}); err != nil {
		return err
	}
	count := s.session.IncrementCount()

	newButton, err := fedhost.LoadOrFallback[remotes.ButtonConstructor](ctx, s.host, "remoteApp1/Button", nil)
	if err != nil {
		fmt.Println("⚠️  remoteApp1/Button 不可用，显示占位内容")
	} else {
		btn := newButton("remote1-button", "Remote Button")
		fmt.Println("🔘", btn.Render(count))
		btn.Click()
		btn.Navigate(app.ProductDetail("1"))
	}

	s.cart, err = fedhost.LoadOrFallback[*remotes.CartView](ctx, s.host, "remoteApp2/Cart", nil)
	if err != nil {
		fmt.Println("⚠️  remoteApp2/Cart 不可用，显示占位内容")
	} else {
		if err := s.nav.Navigate(app.RouteRemote2Cart, false); err != nil {
			return err
		}
		for i := 0; i < 2; i++ {
			if _, err := s.cart.AddProduct(); err != nil {
				return err
			}
		}
		if _, err := s.cart.Checkout(); err != nil {
			return err
		}
	}

	s.ui.ToggleTheme()
	if addr := s.host.DiagnosticsAddr(); addr != "" {
		fmt.Printf("🩺 诊断服务: http://%s/debug/introspect\n", addr)
	}
	return nil
}

// Stop 释放宿主状态并停止宿主
func (s *shell) Stop(ctx context.Context) error {
	s.scope.Close()
	s.nav.Close()
	s.notifier.Close()
	if s.cart != nil {
		s.cart.Close()
	}

	stats := s.host.Stats()
	log.Info("退出前统计", "emits", stats.Emits, "fetches", stats.Fetches, "moduleLoads", stats.ModuleLoads)
	return s.host.Stop(ctx)
}
