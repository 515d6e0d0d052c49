package cron_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/flemzord/sessiond/internal/cron"
	"github.com/flemzord/sessiond/internal/session"
)

// fakeIndex implements session.Index over a map.
type fakeIndex struct {
	entries map[string]session.IndexEntry
	findErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: make(map[string]session.IndexEntry)}
}

func (ix *fakeIndex) add(id string, lastAccess time.Time) {
	ix.entries[id] = session.IndexEntry{ID: id, CreatedAt: lastAccess, LastAccessAt: lastAccess}
}

func (ix *fakeIndex) Register(_ context.Context, id string) error { return nil }
func (ix *fakeIndex) Touch(_ context.Context, id string) error    { return nil }

func (ix *fakeIndex) Remove(_ context.Context, id string) error {
	delete(ix.entries, id)
	return nil
}

func (ix *fakeIndex) Get(_ context.Context, id string) (session.IndexEntry, bool, error) {
	entry, ok := ix.entries[id]
	return entry, ok, nil
}

func (ix *fakeIndex) FindExpired(_ context.Context, cutoff time.Time, limit int) ([]session.IndexEntry, error) {
	if ix.findErr != nil {
		return nil, ix.findErr
	}
	if limit <= 0 {
		limit = 200
	}
	var out []session.IndexEntry
	for _, entry := range ix.entries {
		if entry.LastAccessAt.Before(cutoff) {
			out = append(out, entry)
		}
	}
	slices.SortFunc(out, func(a, b session.IndexEntry) int {
		return a.LastAccessAt.Compare(b.LastAccessAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (ix *fakeIndex) Count(_ context.Context) (int, error) {
	return len(ix.entries), nil
}

// fakeDestroyer records destroyed sessions; ids in failing error out
// without removing anything.
type fakeDestroyer struct {
	index     *fakeIndex
	destroyed []string
	failing   map[string]bool
}

func (d *fakeDestroyer) Destroy(_ context.Context, id string) error {
	if d.failing[id] {
		return errors.New("destroy failed")
	}
	d.destroyed = append(d.destroyed, id)
	delete(d.index.entries, id)
	return nil
}

func TestExpirySweepJob_DestroysIdleSessions(t *testing.T) {
	t.Parallel()

	index := newFakeIndex()
	now := time.Now()
	index.add("idle-1", now.Add(-30*time.Hour))
	index.add("idle-2", now.Add(-25*time.Hour))
	index.add("active", now.Add(-time.Hour))

	destroyer := &fakeDestroyer{index: index}
	var swept, failed int
	job := &cron.ExpirySweepJob{
		Index:         index,
		Sessions:      destroyer,
		IdleThreshold: 24 * time.Hour,
		BatchLimit:    200,
		OnSweep:       func(s, f int) { swept, failed = s, f },
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if swept != 2 || failed != 0 {
		t.Errorf("swept/failed = %d/%d, want 2/0", swept, failed)
	}
	// Oldest first.
	want := []string{"idle-1", "idle-2"}
	if !slices.Equal(destroyer.destroyed, want) {
		t.Errorf("destroyed = %v, want %v", destroyer.destroyed, want)
	}
	if _, ok := index.entries["active"]; !ok {
		t.Error("active session was destroyed")
	}
}

func TestExpirySweepJob_FailuresAreIsolated(t *testing.T) {
	t.Parallel()

	index := newFakeIndex()
	now := time.Now()
	index.add("bad", now.Add(-40*time.Hour))
	index.add("good", now.Add(-30*time.Hour))

	destroyer := &fakeDestroyer{index: index, failing: map[string]bool{"bad": true}}
	job := &cron.ExpirySweepJob{
		Index:         index,
		Sessions:      destroyer,
		IdleThreshold: 24 * time.Hour,
	}

	// The batch continues past the failure; the tick itself succeeds.
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !slices.Equal(destroyer.destroyed, []string{"good"}) {
		t.Errorf("destroyed = %v, want [good]", destroyer.destroyed)
	}
	// The failed session keeps its index entry and is retried next tick.
	if _, ok := index.entries["bad"]; !ok {
		t.Error("failed session lost its index entry")
	}

	destroyer.failing = nil
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !slices.Equal(destroyer.destroyed, []string{"good", "bad"}) {
		t.Errorf("destroyed after retry = %v, want [good bad]", destroyer.destroyed)
	}
}

func TestExpirySweepJob_IdempotentTick(t *testing.T) {
	t.Parallel()

	index := newFakeIndex()
	index.add("idle", time.Now().Add(-48*time.Hour))

	destroyer := &fakeDestroyer{index: index}
	job := &cron.ExpirySweepJob{
		Index:         index,
		Sessions:      destroyer,
		IdleThreshold: 24 * time.Hour,
	}

	for i := range 2 {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}
	if len(destroyer.destroyed) != 1 {
		t.Errorf("destroyed %d sessions across two ticks, want 1", len(destroyer.destroyed))
	}
}

func TestExpirySweepJob_RespectsBatchLimit(t *testing.T) {
	t.Parallel()

	index := newFakeIndex()
	now := time.Now()
	for i := range 5 {
		index.add(fmt.Sprintf("idle-%d", i), now.Add(-time.Duration(30+i)*time.Hour))
	}

	destroyer := &fakeDestroyer{index: index}
	job := &cron.ExpirySweepJob{
		Index:         index,
		Sessions:      destroyer,
		IdleThreshold: 24 * time.Hour,
		BatchLimit:    2,
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(destroyer.destroyed) != 2 {
		t.Fatalf("first tick destroyed %d, want 2", len(destroyer.destroyed))
	}

	// Remaining sessions drain over subsequent ticks.
	for len(index.entries) > 0 {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("drain Run: %v", err)
		}
	}
	if len(destroyer.destroyed) != 5 {
		t.Errorf("destroyed %d total, want 5", len(destroyer.destroyed))
	}
}

func TestExpirySweepJob_FindError(t *testing.T) {
	t.Parallel()

	index := newFakeIndex()
	index.findErr = errors.New("storage down")

	job := &cron.ExpirySweepJob{
		Index:    index,
		Sessions: &fakeDestroyer{index: index},
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("Run succeeded despite index failure")
	}
}
