package fedhost

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-fedhost/config"
	"github.com/dep2p/go-fedhost/internal/core/federation"
	"github.com/dep2p/go-fedhost/internal/remotes"
	"github.com/dep2p/go-fedhost/internal/util/logger"
	"github.com/dep2p/go-fedhost/pkg/events"
	"github.com/dep2p/go-fedhost/pkg/types"
)

// manifestServer 为内置容器提供清单，返回远程选项
func manifestServer(t *testing.T, names ...string) (*httptest.Server, []Option) {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	var opts []Option
	for _, name := range names {
		c, err := remotes.New(name)
		require.NoError(t, err)
		path := "/" + name + ".json"
		h, err := remotes.Handler(c, srv.URL+path)
		require.NoError(t, err)
		mux.Handle(path, h)
		opts = append(opts, WithRemote(name, srv.URL+path))
	}
	return srv, opts
}

func newTestHost(t *testing.T, opts ...Option) *Host {
	t.Helper()

	_, remoteOpts := manifestServer(t, remotes.RemoteApp1, remotes.RemoteApp2, remotes.SharedUtils)
	all := append([]Option{WithBuiltinRemotes(), WithShared("react", remotes.ReactVersion, true, nil)}, remoteOpts...)
	h, err := New(append(all, opts...)...)
	require.NoError(t, err)
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() { _ = h.Stop(context.Background()) })
	return h
}

func TestHost_Lifecycle(t *testing.T) {
	h, err := New()
	require.NoError(t, err)

	assert.NotNil(t, h.Bus())
	assert.Empty(t, h.DiagnosticsAddr())

	ctx := context.Background()
	require.NoError(t, h.Start(ctx))
	assert.ErrorIs(t, h.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, h.Stop(ctx))
	require.NoError(t, h.Stop(ctx), "重复停止为空操作")
	assert.ErrorIs(t, h.Start(ctx), ErrHostClosed)

	_, err = h.Import(ctx, "remoteApp1/Button")
	assert.ErrorIs(t, err, ErrHostClosed)
	t.Log("✅ 宿主生命周期测试通过")
}

func TestHost_InvalidOptions(t *testing.T) {
	t.Run("无效远程", func(t *testing.T) {
		_, err := New(WithRemote("bad/name", "http://localhost"))
		assert.Error(t, err)
	})

	t.Run("无效共享版本", func(t *testing.T) {
		_, err := New(WithShared("react", "latest", true, nil))
		assert.Error(t, err)
	})

	t.Run("加载器互斥", func(t *testing.T) {
		_, err := New(WithBuiltinRemotes(), WithLoader(federation.NewRegistry()))
		assert.Error(t, err)
	})

	t.Run("配置校验失败", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Federation.VersionPolicy = "lenient"
		_, err := New(WithConfig(cfg))
		assert.ErrorContains(t, err, "config validation failed")
	})

	t.Run("配置文件不存在", func(t *testing.T) {
		_, err := New(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
		assert.Error(t, err)
	})
}

func TestHost_ImportBuiltinRemotes(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	require.NoError(t, h.Preload(ctx))
	for _, st := range h.Remotes() {
		assert.Equal(t, types.StateResolved, st.State, st.Name)
	}

	newButton, err := Import[remotes.ButtonConstructor](ctx, h, "remoteApp1/Button")
	require.NoError(t, err)

	var clicks atomic.Int32
	events.On(h.Bus(), events.ButtonClicked, func(types.ButtonClickedEvent) { clicks.Add(1) })
	newButton("b1", "Count").Click()
	assert.Equal(t, int32(1), clicks.Load())

	bus, err := Import[*struct{}](ctx, h, "sharedUtils/eventBus")
	assert.ErrorIs(t, err, ErrUnexpectedExport)
	assert.Nil(t, bus)

	stats := h.Stats()
	assert.Equal(t, int64(1), stats.Emits)
	assert.GreaterOrEqual(t, stats.Fetches, int64(3))

	var found bool
	for _, rec := range h.Shared() {
		if rec.Name == remotes.EventBusLibrary {
			found = true
			assert.Equal(t, federation.HostProvider, rec.Provider)
		}
	}
	assert.True(t, found)
}

func TestHost_LoadOrFallback(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.AddRemote("offline", "http://127.0.0.1:1/remoteEntry.json"))

	fallback := remotes.ButtonConstructor(nil)
	got, err := LoadOrFallback(context.Background(), h, "offline/Button", fallback)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteUnavailable))
	assert.Nil(t, got)

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "offline", re.Remote)

	_, err = LoadOrFallback(context.Background(), h, "not-a-ref", 0)
	assert.ErrorIs(t, err, ErrInvalidRef)

	t.Run("预加载合并失败", func(t *testing.T) {
		err := h.Preload(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRemoteUnavailable)
	})
}

func TestHost_VersionConflict(t *testing.T) {
	// 宿主激活 react 17，远程声明 ^18.3.1
	_, remoteOpts := manifestServer(t, remotes.RemoteApp1)
	opts := append([]Option{WithBuiltinRemotes(), WithShared("react", "17.0.2", true, nil)}, remoteOpts...)

	h, err := New(opts...)
	require.NoError(t, err)
	defer h.Stop(context.Background())

	_, err = h.Import(context.Background(), "remoteApp1/Button")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionConflict)

	var vc *VersionConflictError
	require.ErrorAs(t, err, &vc)
	assert.Equal(t, "react", vc.Library)
	assert.Equal(t, "17.0.2", vc.Active)

	t.Run("warn 策略继续加载", func(t *testing.T) {
		_, remoteOpts := manifestServer(t, remotes.RemoteApp1)
		opts := append([]Option{
			WithBuiltinRemotes(),
			WithShared("react", "17.0.2", true, nil),
			WithVersionPolicy(config.VersionPolicyWarn),
		}, remoteOpts...)
		h, err := New(opts...)
		require.NoError(t, err)
		defer h.Stop(context.Background())

		_, err = Import[remotes.ButtonConstructor](context.Background(), h, "remoteApp1/Button")
		assert.NoError(t, err)
	})
}

func TestHost_Diagnostics(t *testing.T) {
	h := newTestHost(t, WithDiagnostics("127.0.0.1:0", false))
	addr := h.DiagnosticsAddr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHost_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fedhost.log")
	h, err := New(WithLogFile(path))
	require.NoError(t, err)
	require.NoError(t, h.Start(context.Background()))
	require.NoError(t, h.Stop(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "subsystem=fedhost")
}

func TestHost_LogFormatFromConfig(t *testing.T) {
	if logger.FromEnv().FormatSet {
		t.Skip("FEDHOST_LOG_FORMAT 已设置")
	}
	t.Cleanup(func() { logger.SetFormat(logger.FormatText) })

	cfg := config.NewConfig()
	cfg.Log.Format = "json"
	cfg.Log.File = filepath.Join(t.TempDir(), "fedhost.json.log")

	h, err := New(WithConfig(cfg))
	require.NoError(t, err)
	require.NoError(t, h.Start(context.Background()))
	require.NoError(t, h.Stop(context.Background()))

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"subsystem":"fedhost"`)
}

func TestHost_ErrorReporter(t *testing.T) {
	var reported atomic.Int32
	h, err := New(WithErrorReporter(func(err error) {
		if errors.Is(err, ErrHandler) {
			reported.Add(1)
		}
	}))
	require.NoError(t, err)
	defer h.Stop(context.Background())

	var after atomic.Bool
	events.On(h.Bus(), events.ThemeChanged, func(types.ThemeChangedEvent) { panic("boom") })
	events.On(h.Bus(), events.ThemeChanged, func(types.ThemeChangedEvent) { after.Store(true) })
	events.Emit(h.Bus(), events.ThemeChanged, types.ThemeChangedEvent{Theme: types.ThemeDark})

	assert.Equal(t, int32(1), reported.Load())
	assert.True(t, after.Load(), "后续处理函数仍被调用")
	assert.Equal(t, int64(1), h.Stats().HandlerPanics)
}
