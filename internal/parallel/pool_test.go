package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Creation Tests
// =============================================================================

func TestNewPool(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"explicit", 4, 4},
		{"zero", 0, runtime.GOMAXPROCS(0)},
		{"negative", -5, runtime.GOMAXPROCS(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(tt.workers)
			defer p.Close()
			if p.Workers() != tt.want {
				t.Errorf("Workers() = %d, want %d", p.Workers(), tt.want)
			}
			if !p.IsRunning() {
				t.Error("pool should be running after creation")
			}
		})
	}
}

// =============================================================================
// Run Tests
// =============================================================================

func TestRunVisitsEveryGroupOnce(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	const groups = 1000
	var seen [groups]atomic.Int32
	p.Run(groups, func(g int) { seen[g].Add(1) })

	for g := range seen {
		if n := seen[g].Load(); n != 1 {
			t.Fatalf("group %d ran %d times", g, n)
		}
	}
}

func TestRunZeroGroups(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	called := false
	p.Run(0, func(int) { called = true })
	p.Run(-1, func(int) { called = true })
	if called {
		t.Error("Run called fn with no groups")
	}
}

func TestRunSlowGroups(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var slow, fast atomic.Int64
	p.Run(100, func(g int) {
		if g%10 == 0 {
			time.Sleep(5 * time.Millisecond)
			slow.Add(1)
			return
		}
		fast.Add(1)
	})
	if slow.Load() != 10 || fast.Load() != 90 {
		t.Errorf("slow = %d, fast = %d, want 10 and 90", slow.Load(), fast.Load())
	}
}

func TestRunConcurrentDispatches(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var total atomic.Int64
	done := make(chan struct{})
	for range 8 {
		go func() {
			p.Run(64, func(int) { total.Add(1) })
			done <- struct{}{}
		}()
	}
	for range 8 {
		<-done
	}
	if total.Load() != 8*64 {
		t.Errorf("total = %d, want %d", total.Load(), 8*64)
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestCloseIdempotent(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close()
	if p.IsRunning() {
		t.Error("pool running after Close")
	}
}

func TestRunAfterClose(t *testing.T) {
	p := NewPool(2)
	p.Close()

	var n atomic.Int64
	p.Run(10, func(int) { n.Add(1) })
	if n.Load() != 10 {
		t.Errorf("ran %d groups after Close, want 10", n.Load())
	}
}

func TestNoGoroutineLeak(t *testing.T) {
	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	baseline := runtime.NumGoroutine()

	for range 5 {
		p := NewPool(4)
		p.Run(100, func(int) {})
		p.Close()
	}

	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	if final := runtime.NumGoroutine(); final > baseline+2 {
		t.Errorf("goroutines: baseline=%d, final=%d", baseline, final)
	}
}
