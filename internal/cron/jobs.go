package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/sessiond/internal/session"
)

// Destroyer is the subset of the session manager the sweep needs.
// Defined here to avoid a dependency on the manager's concrete type.
type Destroyer interface {
	Destroy(ctx context.Context, sessionID string) error
}

// ExpirySweepJob finds sessions idle past the threshold and destroys
// their state: message log, rolling context, and index entry.
//
// One tick processes at most BatchLimit sessions; leftovers are picked
// up by the next tick. Per-session failures are isolated: a failed
// session keeps both its durable state and its index entry, so it is
// naturally retried later. Running a tick twice with no intervening
// activity is a no-op the second time.
type ExpirySweepJob struct {
	Index         session.Index
	Sessions      Destroyer
	IdleThreshold time.Duration
	BatchLimit    int
	Logger        *slog.Logger
	ScheduleExpr  string // empty = default "0 * * * *"

	// OnSweep, when set, receives the per-tick swept/failed counts
	// (used for metrics).
	OnSweep func(swept, failed int)
}

// Compile-time interface check.
var _ Job = (*ExpirySweepJob)(nil)

// Name implements Job.
func (j *ExpirySweepJob) Name() string { return "expiry_sweep" }

// Schedule implements Job.
func (j *ExpirySweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run executes one sweep tick.
func (j *ExpirySweepJob) Run(ctx context.Context) error {
	idle := j.IdleThreshold
	if idle <= 0 {
		idle = 24 * time.Hour
	}
	cutoff := time.Now().Add(-idle)

	expired, err := j.Index.FindExpired(ctx, cutoff, j.BatchLimit)
	if err != nil {
		return fmt.Errorf("cron: find expired sessions: %w", err)
	}

	swept, failed := 0, 0
	for _, entry := range expired {
		if ctx.Err() != nil {
			break
		}

		// Destroy removes durable state and the index entry together;
		// on failure both remain, and the next tick retries.
		if err := j.Sessions.Destroy(ctx, entry.ID); err != nil {
			failed++
			j.logger().Warn("cron: sweep failed for session, will retry",
				"session", entry.ID,
				"error", err,
			)
			continue
		}
		swept++
	}

	if swept > 0 || failed > 0 {
		j.logger().Info("cron: expiry sweep completed",
			"swept", swept,
			"failed", failed,
			"cutoff", cutoff,
		)
	}
	if j.OnSweep != nil {
		j.OnSweep(swept, failed)
	}
	return nil
}

func (j *ExpirySweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
