package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// ============================================================================
// 并发测试
// ============================================================================

// TestConcurrent_Observe 测试并发记录
func TestConcurrent_Observe(t *testing.T) {
	c := NewCollector()

	numGoroutines := 50
	numOps := 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines * 2)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				c.EmitObserved("cart:item-added", 2)
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				c.ModuleLoaded("remoteApp1", "Button", nil, time.Millisecond)
				_ = c.Snapshot()
			}
		}()
	}

	wg.Wait()

	stats := c.Snapshot()
	expected := int64(numGoroutines * numOps)
	if stats.Emits != expected {
		t.Errorf("Emits = %d, want %d", stats.Emits, expected)
	}
	if stats.Deliveries != expected*2 {
		t.Errorf("Deliveries = %d, want %d", stats.Deliveries, expected*2)
	}
	if stats.ModuleLoads != expected {
		t.Errorf("ModuleLoads = %d, want %d", stats.ModuleLoads, expected)
	}
}

// ============================================================================
// RateMeter 测试
// ============================================================================

// TestRateMeter_Window 测试滑动窗口
func TestRateMeter_Window(t *testing.T) {
	mock := clock.NewMock()
	r := NewRateMeter(mock)

	r.Add(30)
	mock.Add(500 * time.Millisecond)
	r.Add(30)
	if got := r.Total(); got != 60 {
		t.Errorf("Total = %d, want 60", got)
	}
	if got := r.Rate(); got != 1.0 {
		t.Errorf("Rate = %f, want 1.0", got)
	}

	// 30 秒后仍在窗口内
	mock.Add(30 * time.Second)
	r.Add(60)
	if got := r.Total(); got != 120 {
		t.Errorf("Total = %d, want 120", got)
	}

	// 最早的桶滑出窗口
	mock.Add(30 * time.Second)
	if got := r.Total(); got != 60 {
		t.Errorf("Total = %d, want 60", got)
	}

	// 超过 60 秒没有数据
	mock.Add(2 * time.Minute)
	if got := r.Total(); got != 0 {
		t.Errorf("Total = %d, want 0", got)
	}

	r.Add(5)
	r.Reset()
	if got := r.Total(); got != 0 {
		t.Errorf("Total after Reset = %d, want 0", got)
	}
	if !r.LastUpdate().Equal(mock.Now()) {
		t.Errorf("LastUpdate = %v, want %v", r.LastUpdate(), mock.Now())
	}
}

// TestRateMeter_Concurrent 测试并发添加
func TestRateMeter_Concurrent(t *testing.T) {
	r := NewRateMeter(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := r.Total(); got != 2000 {
		t.Errorf("Total = %d, want 2000", got)
	}
}
