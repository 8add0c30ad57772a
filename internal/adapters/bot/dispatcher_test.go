package bot

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherPreservesPerKeyOrder(t *testing.T) {
	d := NewDispatcher(0, nil)

	var mu sync.Mutex
	got := map[string][]int{}
	for i := 0; i < 50; i++ {
		for _, key := range []string{"a", "b", "c"} {
			d.Submit(key, func() {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			})
		}
	}
	d.Wait()

	for _, key := range []string{"a", "b", "c"} {
		if len(got[key]) != 50 {
			t.Fatalf("key %s: expected 50 tasks, got %d", key, len(got[key]))
		}
		for i, v := range got[key] {
			if v != i {
				t.Fatalf("key %s: expected FIFO order, got %v", key, got[key])
			}
		}
	}
	if d.Depth() != 0 {
		t.Fatalf("expected empty queue, got depth %d", d.Depth())
	}
}

func TestDispatcherNeverOverlapsSameKey(t *testing.T) {
	d := NewDispatcher(0, nil)

	var running, overlaps atomic.Int32
	for i := 0; i < 20; i++ {
		d.Submit("thread", func() {
			if running.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
		})
	}
	d.Wait()

	if overlaps.Load() != 0 {
		t.Fatalf("expected serialized execution, saw %d overlaps", overlaps.Load())
	}
}

func TestDispatcherRunsDifferentKeysInParallel(t *testing.T) {
	d := NewDispatcher(0, nil)

	release := make(chan struct{})
	started := make(chan string, 2)
	for _, key := range []string{"a", "b"} {
		d.Submit(key, func() {
			started <- key
			<-release
		})
	}

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected both keys to start while the other is blocked")
		}
	}
	close(release)
	d.Wait()
}

func TestDispatcherBoundsActiveKeys(t *testing.T) {
	d := NewDispatcher(2, nil)

	var running, peak atomic.Int32
	for i := 0; i < 8; i++ {
		d.Submit(fmt.Sprintf("k-%d", i), func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
		})
	}
	d.Wait()

	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, saw %d", peak.Load())
	}
}

func TestDispatcherReportsDepth(t *testing.T) {
	var mu sync.Mutex
	var depths []int
	d := NewDispatcher(0, func(depth int) {
		mu.Lock()
		depths = append(depths, depth)
		mu.Unlock()
	})

	release := make(chan struct{})
	d.Submit("a", func() { <-release })
	d.Submit("a", func() {})
	d.Submit("a", func() {})
	if got := d.Depth(); got != 2 {
		t.Fatalf("expected 2 queued tasks, got %d", got)
	}
	close(release)
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(depths) == 0 || depths[len(depths)-1] != 0 {
		t.Fatalf("expected final depth 0, got %v", depths)
	}
}
