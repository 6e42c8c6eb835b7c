package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestStartRejectsInvalidExpression(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("not a cron spec", time.UTC)
	if err := sched.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("0 6 * * *", time.UTC)
	if err := sched.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := sched.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}

func TestStartWithoutJobIsNoOp(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("0 6 * * *", time.UTC)
	if err := sched.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := sched.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}
