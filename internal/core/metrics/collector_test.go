package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Collector 测试
// ============================================================================

// TestCollector_BusObserver 测试事件总线指标
func TestCollector_BusObserver(t *testing.T) {
	c := NewCollector()

	c.EmitObserved("cart:item-added", 2)
	c.EmitObserved("cart:item-added", 0)
	c.EmitObserved("theme:changed", 1)
	c.HandlerFailed("cart:item-added")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.emits.WithLabelValues("cart:item-added")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.deliveries.WithLabelValues("cart:item-added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.panics.WithLabelValues("cart:item-added")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.emits))

	stats := c.Snapshot()
	assert.Equal(t, int64(3), stats.Emits)
	assert.Equal(t, int64(3), stats.Deliveries)
	assert.Equal(t, int64(1), stats.HandlerPanics)
	assert.InDelta(t, 3.0/60.0, stats.EmitRate, 1e-9)
}

// TestCollector_FederationObserver 测试远程解析指标
func TestCollector_FederationObserver(t *testing.T) {
	c := NewCollector()
	boom := errors.New("connection refused")

	c.RemoteFetched("remoteApp1", boom, 5*time.Millisecond)
	c.RemoteFetched("remoteApp1", nil, 10*time.Millisecond)
	c.ModuleLoaded("remoteApp1", "Button", nil, 20*time.Millisecond)
	c.ModuleLoaded("remoteApp2", "Cart", boom, time.Millisecond)
	c.VersionConflict("react")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("remoteApp1", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("remoteApp1", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loads.WithLabelValues("remoteApp2", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.conflicts.WithLabelValues("react")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.loadDuration))

	stats := c.Snapshot()
	assert.Equal(t, int64(2), stats.Fetches)
	assert.Equal(t, int64(1), stats.FetchFailures)
	assert.Equal(t, int64(2), stats.ModuleLoads)
	assert.Equal(t, int64(1), stats.ModuleFailures)
	assert.Equal(t, int64(1), stats.VersionConflicts)
}

// TestCollector_Gather 测试导出格式
func TestCollector_Gather(t *testing.T) {
	c := NewCollector()
	c.VersionConflict("react")

	expected := `
# HELP fedhost_federation_version_conflicts_total Total shared singleton version conflicts per library.
# TYPE fedhost_federation_version_conflicts_total counter
fedhost_federation_version_conflicts_total{library="react"} 1
`
	require.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"fedhost_federation_version_conflicts_total"))
}

// TestCollector_Handler 测试 /metrics 处理器
func TestCollector_Handler(t *testing.T) {
	c := NewCollector(WithRuntimeMetrics())
	c.EmitObserved("user:login", 1)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fedhost_eventbus_emits_total{channel="user:login"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
