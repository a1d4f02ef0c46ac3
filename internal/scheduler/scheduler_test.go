package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestStart_WithoutJobsIsNoop(t *testing.T) {
	s := New()
	defer s.Stop()
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("no job should be registered")
	}
}

func TestStart_RegistersJobs(t *testing.T) {
	s := New()
	defer s.Stop()
	s.AddJob("report", "0 21 * * *", func(ctx context.Context) error { return nil })
	s.AddJob("sweep", "@every 5m", func(ctx context.Context) error { return nil })
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() || len(s.cron.Entries()) != 2 {
		t.Fatalf("jobs not registered: %d", len(s.cron.Entries()))
	}
}

func TestStart_RunsJob(t *testing.T) {
	s := New()
	defer s.Stop()
	ran := make(chan struct{}, 1)
	s.AddJob("tick", "@every 1s", func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
}

func TestStart_InvalidSpec(t *testing.T) {
	s := New()
	defer s.Stop()
	s.AddJob("report", "every day at nine", func(ctx context.Context) error { return nil })
	if err := s.Start(); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
}
