package watchdog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "homeworkbot/pkg/logx"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return true, nil
}

func (r *recorder) count(state string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.states {
		if s == state {
			n++
		}
	}
	return n
}

func TestReadyAndStopping(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	w := New(logx.Nop(), nil, WithNotifier(r.notify, nil))
	w.Ready()
	w.Stopping()
	if r.count(daemon.SdNotifyReady) != 1 || r.count(daemon.SdNotifyStopping) != 1 {
		t.Fatalf("states = %v", r.states)
	}
}

func TestRunPingsOnlyWhileHealthy(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	var healthy atomic.Bool
	healthy.Store(true)
	enabled := func(bool) (time.Duration, error) { return 20 * time.Millisecond, nil }
	w := New(logx.Nop(), healthy.Load, WithNotifier(r.notify, enabled))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for r.count(daemon.SdNotifyWatchdog) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("no watchdog pings")
		}
		time.Sleep(5 * time.Millisecond)
	}

	healthy.Store(false)
	time.Sleep(30 * time.Millisecond) // let an in-flight tick drain
	before := r.count(daemon.SdNotifyWatchdog)
	time.Sleep(60 * time.Millisecond)
	if after := r.count(daemon.SdNotifyWatchdog); after != before {
		t.Fatalf("pinged while unhealthy: %d -> %d", before, after)
	}

	cancel()
	<-done
}

func TestRunDisabledBlocksUntilCancel(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	enabled := func(bool) (time.Duration, error) { return 0, nil }
	w := New(logx.Nop(), nil, WithNotifier(r.notify, enabled))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.states) != 0 {
		t.Fatalf("states = %v", r.states)
	}
}
