package cron_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/flemzord/sessiond/internal/cron"
)

type stubJob struct {
	name     string
	schedule string
}

func (j stubJob) Name() string                { return j.name }
func (j stubJob) Schedule() string            { return j.schedule }
func (j stubJob) Run(_ context.Context) error { return nil }

func TestScheduler_RejectsDuplicateJobName(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	if err := s.RegisterJob(stubJob{name: "sweep", schedule: "0 * * * *"}); err != nil {
		t.Fatalf("first RegisterJob: %v", err)
	}
	if err := s.RegisterJob(stubJob{name: "sweep", schedule: "*/5 * * * *"}); err == nil {
		t.Fatal("duplicate job name accepted")
	}
}

func TestScheduler_RejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	if err := s.RegisterJob(stubJob{name: "broken", schedule: "not a cron expr"}); err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Cleanup(func() { _ = s.Stop(context.Background()) })
		t.Fatal("Start accepted an invalid schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	if err := s.RegisterJob(stubJob{name: "sweep", schedule: "0 * * * *"}); err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
