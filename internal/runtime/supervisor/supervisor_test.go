package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSupervisorCancelOnError(t *testing.T) {
	t.Parallel()
	s := NewSupervisor(context.Background(), WithCancelOnError(true))

	s.Go0("waiter", func(ctx context.Context) { <-ctx.Done() })
	s.Go("failing", func(context.Context) error { return errors.New("bad") })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == nil || !strings.Contains(err.Error(), "failing: bad") {
		t.Fatalf("Wait = %v", err)
	}
	if r := s.Running(); len(r) != 0 {
		t.Fatalf("Running = %v", r)
	}
}

func TestSupervisorRecoversPanic(t *testing.T) {
	t.Parallel()
	s := NewSupervisor(context.Background())
	s.Go0("panicky", func(context.Context) { panic("oops") })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == nil || !strings.Contains(err.Error(), "panic in panicky") {
		t.Fatalf("Wait = %v", err)
	}
}

func TestSupervisorStopIgnoresCancellation(t *testing.T) {
	t.Parallel()
	s := NewSupervisor(context.Background())
	s.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop = %v", err)
	}
}

func TestSupervisorWaitTimeout(t *testing.T) {
	t.Parallel()
	s := NewSupervisor(context.Background())
	release := make(chan struct{})
	s.Go0("stuck", func(context.Context) { <-release })
	s.Go0("quick", func(context.Context) {})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want deadline exceeded", err)
	}
	if !strings.Contains(err.Error(), "still running: stuck") {
		t.Fatalf("Wait = %v, want the stuck goroutine named", err)
	}
}

func TestSupervisorRunningCountsSameName(t *testing.T) {
	t.Parallel()
	s := NewSupervisor(context.Background())
	first := make(chan struct{})
	second := make(chan struct{})
	s.Go0("worker", func(context.Context) { <-first })
	s.Go0("worker", func(context.Context) { <-second })

	if r := s.Running(); len(r) != 1 || r[0] != "worker" {
		t.Fatalf("Running = %v", r)
	}
	close(first)
	time.Sleep(20 * time.Millisecond)
	if r := s.Running(); len(r) != 1 {
		t.Fatalf("Running after one exit = %v", r)
	}
	close(second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait = %v", err)
	}
	if r := s.Running(); len(r) != 0 {
		t.Fatalf("Running = %v", r)
	}
}
