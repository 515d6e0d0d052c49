package session

import (
	"sync"
	"testing"
	"time"
)

func TestLaneLock_SerializesSameSession(t *testing.T) {
	t.Parallel()

	lanes := newLaneLock()

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	lanes.acquire("a")
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			lanes.acquire("a")
			defer lanes.release("a")
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}(i)
	}

	// Nothing can run while the lane is held.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	if len(order) != 0 {
		t.Errorf("goroutines ran while lane held: %v", order)
	}
	mu.Unlock()

	lanes.release("a")
	wg.Wait()

	if len(order) != 3 {
		t.Fatalf("ran %d goroutines, want 3", len(order))
	}
}

func TestLaneLock_IndependentSessions(t *testing.T) {
	t.Parallel()

	lanes := newLaneLock()
	lanes.acquire("blocked")
	defer lanes.release("blocked")

	done := make(chan struct{})
	go func() {
		lanes.acquire("free")
		lanes.release("free")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("operation on an independent session blocked")
	}
}

func TestLaneLock_DropsIdleLanes(t *testing.T) {
	t.Parallel()

	lanes := newLaneLock()
	lanes.acquire("a")
	lanes.release("a")

	lanes.mu.Lock()
	defer lanes.mu.Unlock()
	if len(lanes.lanes) != 0 {
		t.Errorf("lane map holds %d entries after release, want 0", len(lanes.lanes))
	}
}
