package session

import "sync"

// laneLock provides per-session serialization. Operations within the
// same session run one at a time in arrival order, while different
// sessions proceed in parallel.
//
// A global mutex protects the lane map; each lane has its own mutex for
// intra-session serialization. The global mutex is held only briefly to
// look up or create the per-session mutex, so a session blocked on a
// slow generation call never stalls another session.
type laneLock struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// lane stores per-session synchronization metadata. refs counts
// goroutines that acquired (or are waiting on) this lane; a lane is
// removed once its last holder releases it.
type lane struct {
	mu   sync.Mutex
	refs int
}

func newLaneLock() *laneLock {
	return &laneLock{lanes: make(map[string]*lane)}
}

// acquire gets or creates the per-session mutex and locks it.
// The caller must call release with the same id when done.
func (l *laneLock) acquire(id string) {
	l.mu.Lock()
	ln, ok := l.lanes[id]
	if !ok {
		ln = &lane{}
		l.lanes[id] = ln
	}
	ln.refs++
	l.mu.Unlock()

	// Lock outside the global mutex so other sessions are not blocked.
	ln.mu.Lock()
}

// release unlocks the per-session mutex and drops the lane when no
// goroutine holds or waits on it, keeping the map bounded by the number
// of in-flight sessions.
func (l *laneLock) release(id string) {
	l.mu.Lock()
	ln, ok := l.lanes[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 {
		delete(l.lanes, id)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}
