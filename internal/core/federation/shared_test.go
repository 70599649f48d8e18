package federation

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-fedhost/config"
)

type countingObserver struct {
	nopObserver
	conflicts map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{conflicts: map[string]int{}}
}

func (o *countingObserver) VersionConflict(library string) { o.conflicts[library]++ }

func constFactory(v any, calls *int) func() (any, error) {
	return func() (any, error) {
		*calls++
		return v, nil
	}
}

func TestSharedScope_Singleton(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	obs := newCountingObserver()
	scope := NewSharedScope(WithScopeClock(mock), WithScopeObserver(obs))

	var hostCalls, remoteCalls int
	require.NoError(t, scope.Provide(HostProvider, "react", "18.3.1", true, constFactory("react@18.3.1", &hostCalls)))
	require.NoError(t, scope.Provide("remoteApp1", "react", "18.2.0", true, constFactory("react@18.2.0", &remoteCalls)))

	t.Run("首次协商激活最先登记的版本", func(t *testing.T) {
		v, err := scope.Negotiate("remoteApp1", "react", "^18.0.0")
		require.NoError(t, err)
		assert.Equal(t, "react@18.3.1", v)

		rec, ok := scope.Active("react")
		require.True(t, ok)
		assert.Equal(t, "18.3.1", rec.Version)
		assert.Equal(t, HostProvider, rec.Provider)
		assert.True(t, rec.Singleton)
		assert.Equal(t, mock.Now(), rec.ActivatedAt)
		assert.Equal(t, []string{"18.3.1@host", "18.2.0@remoteApp1"}, rec.Providers)
	})

	t.Run("兼容范围返回同一实例且只求值一次", func(t *testing.T) {
		for _, rng := range []string{"*", "18.x", ">=18.0.0 <19.0.0"} {
			v, err := scope.Negotiate("remoteApp2", "react", rng)
			require.NoError(t, err)
			assert.Equal(t, "react@18.3.1", v)
		}
		assert.Equal(t, 1, hostCalls)
		assert.Zero(t, remoteCalls)
	})

	t.Run("不兼容范围返回冲突而不替换实例", func(t *testing.T) {
		_, err := scope.Negotiate("legacyApp", "react", "^17.0.0")
		require.ErrorIs(t, err, ErrVersionConflict)

		var vc *VersionConflictError
		require.ErrorAs(t, err, &vc)
		assert.Equal(t, "react", vc.Library)
		assert.Equal(t, "18.3.1", vc.Active)
		assert.Equal(t, "^17.0.0", vc.Required)
		assert.Equal(t, "legacyApp", vc.Requester)
		assert.Equal(t, 1, obs.conflicts["react"])

		rec, _ := scope.Active("react")
		assert.Equal(t, "18.3.1", rec.Version)
	})
}

func TestSharedScope_WarnPolicy(t *testing.T) {
	obs := newCountingObserver()
	scope := NewSharedScope(WithVersionPolicy(config.VersionPolicyWarn), WithScopeObserver(obs))

	var calls int
	require.NoError(t, scope.Provide(HostProvider, "react-dom", "18.3.1", true, constFactory("dom", &calls)))

	v, err := scope.Negotiate("legacyApp", "react-dom", "^17.0.0")
	require.NoError(t, err)
	assert.Equal(t, "dom", v)
	assert.Equal(t, 1, obs.conflicts["react-dom"])
}

func TestSharedScope_NonSingleton(t *testing.T) {
	scope := NewSharedScope()

	var c1, c2, c3 int
	require.NoError(t, scope.Provide(HostProvider, "lodash", "4.17.20", false, constFactory("4.17.20", &c1)))
	require.NoError(t, scope.Provide("remoteApp1", "lodash", "4.17.21", false, constFactory("4.17.21", &c2)))
	require.NoError(t, scope.Provide("remoteApp2", "lodash", "3.10.1", false, constFactory("3.10.1", &c3)))

	v, err := scope.Negotiate("remoteApp2", "lodash", "^4.0.0")
	require.NoError(t, err)
	assert.Equal(t, "4.17.21", v)

	v, err = scope.Negotiate("remoteApp2", "lodash", "^3.0.0")
	require.NoError(t, err)
	assert.Equal(t, "3.10.1", v)

	_, err = scope.Negotiate("remoteApp2", "lodash", "^5.0.0")
	assert.ErrorIs(t, err, ErrVersionConflict)

	rec, ok := scope.Active("lodash")
	require.True(t, ok)
	assert.False(t, rec.Singleton)
	assert.Equal(t, "4.17.21", rec.Version)
	assert.True(t, rec.ActivatedAt.IsZero())
}

func TestSharedScope_DeclaredOnly(t *testing.T) {
	t.Run("非单例优先选择有工厂的版本", func(t *testing.T) {
		scope := NewSharedScope()

		var calls int
		require.NoError(t, scope.Provide(HostProvider, "lodash", "4.17.21", false, constFactory("host-lodash", &calls)))
		// remoteA 的清单声明了更高版本，但容器没有加载成功
		require.NoError(t, scope.Provide("remoteA", "lodash", "5.0.0", false, nil))

		v, err := scope.Negotiate("remoteB", "lodash", "*")
		require.NoError(t, err)
		assert.Equal(t, "host-lodash", v)
		assert.Equal(t, 1, calls)

		// 只有声明版本满足范围时返回 ErrNoProvider，不返回 (nil, nil)
		v, err = scope.Negotiate("remoteB", "lodash", "^5.0.0")
		assert.ErrorIs(t, err, ErrNoProvider)
		assert.Nil(t, v)
		assert.NoError(t, scope.Check("remoteB", "lodash", "^5.0.0"))
	})

	t.Run("声明的单例改用之后登记的工厂", func(t *testing.T) {
		scope := NewSharedScope()

		require.NoError(t, scope.Provide("remoteA", "zustand", "4.5.0", true, nil))
		require.NoError(t, scope.Check("remoteA", "zustand", "^4.0.0"))
		rec, _ := scope.Active("zustand")
		assert.Equal(t, "4.5.0", rec.Version)

		var calls int
		require.NoError(t, scope.Provide("remoteB", "zustand", "4.6.0", true, constFactory("zustand@4.6.0", &calls)))
		v, err := scope.Negotiate("remoteB", "zustand", "^4.0.0")
		require.NoError(t, err)
		assert.Equal(t, "zustand@4.6.0", v)

		rec, _ = scope.Active("zustand")
		assert.Equal(t, "4.6.0", rec.Version)
		assert.Equal(t, "remoteB", rec.Provider)
	})

	t.Run("单例激活跳过声明版本", func(t *testing.T) {
		scope := NewSharedScope()

		var calls int
		require.NoError(t, scope.Provide("remoteA", "react", "18.2.0", true, nil))
		require.NoError(t, scope.Provide(HostProvider, "react", "18.3.1", true, constFactory("host-react", &calls)))

		v, err := scope.Negotiate("remoteB", "react", "^18.0.0")
		require.NoError(t, err)
		assert.Equal(t, "host-react", v)
	})
}

func TestSharedScope_ProvideIdempotent(t *testing.T) {
	scope := NewSharedScope()

	// 清单声明的版本先登记（无工厂），容器初始化时补上工厂
	require.NoError(t, scope.Provide("remoteApp1", "zustand", "4.5.0", true, nil))
	require.NoError(t, scope.Check("remoteApp1", "zustand", "^4.0.0"))
	_, err := scope.Negotiate("remoteApp1", "zustand", "^4.0.0")
	assert.ErrorIs(t, err, ErrNoProvider)

	var calls int
	require.NoError(t, scope.Provide("remoteApp1", "zustand", "4.5.0", true, constFactory("store", &calls)))
	require.NoError(t, scope.Provide("remoteApp1", "zustand", "v4.5.0", true, constFactory("other", &calls)))

	v, err := scope.Negotiate("remoteApp2", "zustand", "^4.0.0")
	require.NoError(t, err)
	assert.Equal(t, "store", v)
	assert.Equal(t, 1, calls)

	rec, _ := scope.Active("zustand")
	assert.Len(t, rec.Providers, 1)
}

func TestSharedScope_Errors(t *testing.T) {
	scope := NewSharedScope()

	_, err := scope.Negotiate("host", "missing", "*")
	assert.ErrorIs(t, err, ErrNoProvider)

	assert.Error(t, scope.Provide(HostProvider, "", "1.0.0", false, nil))
	assert.Error(t, scope.Provide(HostProvider, "react", "18", false, nil))

	require.NoError(t, scope.Provide(HostProvider, "react", "18.3.1", true, nil))
	_, err = scope.Negotiate("host", "react", "^abc")
	assert.ErrorIs(t, err, ErrInvalidRange)

	// 工厂失败不缓存
	boom := errors.New("boom")
	fail := true
	require.NoError(t, scope.Provide(HostProvider, "flaky", "1.0.0", true, func() (any, error) {
		if fail {
			return nil, boom
		}
		return "ok", nil
	}))
	_, err = scope.Negotiate("host", "flaky", "*")
	assert.ErrorIs(t, err, boom)
	fail = false
	v, err := scope.Negotiate("host", "flaky", "*")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	names := make([]string, 0)
	for _, rec := range scope.Records() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"flaky", "react"}, names)
}

func TestSharedScope_For(t *testing.T) {
	scope := NewSharedScope()
	bound := scope.For("remoteApp1")

	var calls int
	require.NoError(t, bound.Provide("react", "18.3.1", true, constFactory("react", &calls)))
	v, err := bound.Negotiate("react", "^18.0.0")
	require.NoError(t, err)
	assert.Equal(t, "react", v)

	rec, _ := scope.Active("react")
	assert.Equal(t, "remoteApp1", rec.Provider)
}
