package introspect

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-fedhost/internal/core/eventbus"
	"github.com/dep2p/go-fedhost/internal/core/federation"
	"github.com/dep2p/go-fedhost/internal/core/metrics"
	"github.com/dep2p/go-fedhost/pkg/events"
	"github.com/dep2p/go-fedhost/pkg/types"
)

// newTestServer 带有总线、解析表与收集器的诊断服务
func newTestServer(t *testing.T, stream bool) (*Server, *eventbus.Bus, *federation.Resolver) {
	t.Helper()

	collector := metrics.NewCollector()
	bus := eventbus.NewBus(eventbus.WithHistory(8), eventbus.WithObserver(collector))

	registry := federation.NewRegistry()
	require.NoError(t, registry.Register("remoteApp1", federation.NewStaticContainer("remoteApp1").
		Expose("Button", func() (any, error) { return "button", nil })))

	fetcher := federation.FetcherFunc(func(context.Context, string, string) ([]byte, error) {
		return []byte(`{"name":"remoteApp1","entry":"mem://remoteApp1","exposes":["./Button"],
			"shared":{"react":{"version":"18.3.1","singleton":true}}}`), nil
	})
	resolver := federation.NewResolver(map[string]string{
		"remoteApp1": "mem://remoteApp1",
		"remoteApp2": "mem://remoteApp2",
	}, federation.WithFetcher(fetcher), federation.WithLoader(registry), federation.WithObserver(collector))

	server := New(Config{
		Addr:         "127.0.0.1:0",
		Bus:          bus,
		Resolver:     resolver,
		Collector:    collector,
		EnableStream: stream,
	})
	return server, bus, resolver
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestNew(t *testing.T) {
	server := New(Config{})
	assert.NotNil(t, server)
	assert.Equal(t, DefaultAddr, server.config.Addr)
	assert.Nil(t, server.stream, "没有总线时不提供事件流")

	server = New(Config{Addr: "127.0.0.1:8080"})
	assert.Equal(t, "127.0.0.1:8080", server.config.Addr)
}

func TestServer_StartStop(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	ctx := context.Background()
	require.NoError(t, server.Start(ctx))
	assert.True(t, server.running)

	addr := server.Addr()
	assert.NotEqual(t, "127.0.0.1:0", addr)

	// 重复启动应该无效
	require.NoError(t, server.Start(ctx))

	var health HealthResponse
	getJSON(t, "http://"+addr+"/health", &health)
	assert.Equal(t, "ok", health.Status)

	require.NoError(t, server.Stop())
	assert.False(t, server.running)

	// 重复停止应该无效
	require.NoError(t, server.Stop())
}

func TestServer_HealthDegraded(t *testing.T) {
	srv := httptest.NewServer(New(Config{}).Handler())
	defer srv.Close()

	var health HealthResponse
	getJSON(t, srv.URL+"/health", &health)
	assert.Equal(t, "degraded", health.Status)

	resp, err := http.Get(srv.URL + "/debug/introspect/remotes")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/debug/introspect/eventbus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_Introspect(t *testing.T) {
	server, bus, resolver := newTestServer(t, false)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	bus.On("theme:changed", func(any) {})
	events.Emit(bus, events.ThemeChanged, types.ThemeChangedEvent{Theme: types.ThemeDark})
	_, err := resolver.Import(context.Background(), "remoteApp1/Button")
	require.NoError(t, err)

	var resp IntrospectResponse
	getJSON(t, srv.URL+"/debug/introspect", &resp)

	require.NotNil(t, resp.EventBus)
	assert.Equal(t, 1, resp.EventBus.Channels)
	assert.Equal(t, 1, resp.EventBus.Subscriptions)
	assert.Nil(t, resp.EventBus.Handlers, "摘要不含订阅明细")

	require.Len(t, resp.Remotes, 2)
	assert.Equal(t, types.StateResolved, resp.Remotes[0].State)
	assert.Equal(t, types.StateUnresolved, resp.Remotes[1].State)

	require.Len(t, resp.Shared, 1)
	assert.Equal(t, "react", resp.Shared[0].Name)

	require.NotNil(t, resp.Metrics)
	assert.Equal(t, int64(1), resp.Metrics.Emits)
	assert.Equal(t, int64(1), resp.Metrics.ModuleLoads)
	assert.NotEmpty(t, resp.Runtime.GoVersion)
}

func TestServer_EventBusEndpoint(t *testing.T) {
	server, bus, _ := newTestServer(t, false)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	bus.On("cart:item-added", func(any) {})
	for i := 0; i < 3; i++ {
		bus.Emit("cart:item-added", map[string]any{"n": i})
	}

	var info EventBusInfo
	getJSON(t, srv.URL+"/debug/introspect/eventbus?recent=2", &info)
	require.Len(t, info.Handlers["cart:item-added"], 1)
	require.Len(t, info.Recent, 2)
	assert.Equal(t, "cart:item-added", info.Recent[1].Channel)
	assert.Equal(t, 1, info.Recent[1].Delivered)

	resp, err := http.Get(srv.URL + "/debug/introspect/eventbus?recent=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_RemotesAndShared(t *testing.T) {
	server, _, resolver := newTestServer(t, false)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	_, err := resolver.ResolveRemote(context.Background(), "remoteApp1")
	require.NoError(t, err)

	var remotes RemotesInfo
	getJSON(t, srv.URL+"/debug/introspect/remotes", &remotes)
	require.Len(t, remotes.Remotes, 2)
	require.Len(t, remotes.Descriptors, 1)
	assert.Equal(t, []string{"Button"}, remotes.Descriptors[0].Exposes)

	var shared []types.SharedRecord
	getJSON(t, srv.URL+"/debug/introspect/shared", &shared)
	assert.Empty(t, shared, "清单协商之前没有共享依赖")
}

func TestServer_Emit(t *testing.T) {
	server, bus, _ := newTestServer(t, false)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	gotCh := make(chan types.CartItemAddedEvent, 1)
	events.On(bus, events.CartItemAdded, func(e types.CartItemAddedEvent) { gotCh <- e })

	body := `{"itemId":"p1","itemName":"Widget","quantity":2,"price":9.5}`
	resp, err := http.Post(srv.URL+"/debug/introspect/emit?channel=cart:item-added",
		"application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var er EmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
	assert.Equal(t, 1, er.Delivered)
	got := <-gotCh
	assert.Equal(t, "Widget", got.ItemName)
	assert.Equal(t, 2, got.Quantity)

	t.Run("未知通道", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/debug/introspect/emit?channel=nope", "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("载荷无效", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/debug/introspect/emit?channel=cart:item-added", "application/json", strings.NewReader("[1"))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("方法不允许", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/debug/introspect/emit?channel=cart:item-added")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestServer_Metrics(t *testing.T) {
	server, bus, _ := newTestServer(t, false)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	bus.Emit("user:logout", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `fedhost_eventbus_emits_total{channel="user:logout"} 1`)
}

func TestServer_EventStream(t *testing.T) {
	server, bus, _ := newTestServer(t, true)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/debug/introspect/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// 等待订阅生效
	require.Eventually(t, func() bool { return len(bus.Handlers()["*"]) == 1 },
		time.Second, 5*time.Millisecond)

	events.Emit(bus, events.NavigationNavigate, types.NavigationEvent{Path: "/remote2/cart"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev struct {
		Channel string          `json:"channel"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "navigation:navigate", ev.Channel)
	assert.Contains(t, string(ev.Payload), "/remote2/cart")

	// 停止服务后连接被关闭，订阅被移除
	require.NoError(t, server.Stop())
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	require.Eventually(t, func() bool { return len(bus.Handlers()["*"]) == 0 },
		time.Second, 5*time.Millisecond)

	resp, err := http.Get(srv.URL + "/debug/introspect/events/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
