// Package supervisor runs the bot's long-lived goroutines under one context
// and reports which of them are still alive when shutdown stalls.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	logx "homeworkbot/pkg/logx"
)

// Supervisor tracks named goroutines started with Go.
// The first failure (error or panic) is kept; later ones are only logged.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	log      logx.Logger
	failFast bool

	mu      sync.Mutex
	running map[string]int
	first   error

	wg       sync.WaitGroup
	waitOnce sync.Once
	done     chan struct{}
}

type SupervisorOption func(*Supervisor)

func WithLogger(log logx.Logger) SupervisorOption {
	return func(s *Supervisor) { s.log = log }
}

// WithCancelOnError cancels the shared context on the first failure.
func WithCancelOnError(enabled bool) SupervisorOption {
	return func(s *Supervisor) { s.failFast = enabled }
}

func NewSupervisor(parent context.Context, opts ...SupervisorOption) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{
		ctx:     ctx,
		cancel:  cancel,
		log:     logx.Nop(),
		running: map[string]int{},
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

// Context is cancelled by Stop, by the parent, or by a failure under WithCancelOnError.
func (s *Supervisor) Context() context.Context { return s.ctx }

// Go runs fn in its own goroutine. A context.Canceled result is a clean exit.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.running[name]++
	s.mu.Unlock()
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.log.Debug("goroutine started", logx.String("name", name))
		err := s.call(name, fn)
		s.finish(name, err)
	}()
}

// Go0 is Go for functions that only stop when ctx is done.
func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	s.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

func (s *Supervisor) call(name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("goroutine panicked", logx.String("name", name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic in %s: %v", name, r)
		}
	}()
	if err = fn(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error("goroutine failed", logx.String("name", name), logx.Err(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (s *Supervisor) finish(name string, err error) {
	s.mu.Lock()
	if s.running[name]--; s.running[name] <= 0 {
		delete(s.running, name)
	}
	if err != nil && s.first == nil {
		s.first = err
	}
	s.mu.Unlock()

	if err != nil && s.failFast {
		s.cancel()
	}
	s.log.Debug("goroutine stopped", logx.String("name", name))
}

// Running returns the sorted names of goroutines that have not returned yet.
func (s *Supervisor) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.running))
	for n := range s.running {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Stop cancels the shared context and waits like Wait.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

// Wait blocks until every goroutine returned and reports the first failure.
// If ctx ends first the error wraps ctx.Err() and names the stragglers.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.waitOnce.Do(func() {
		go func() {
			s.wg.Wait()
			close(s.done)
		}()
	})

	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.first
	case <-ctx.Done():
		return fmt.Errorf("%w: still running: %s", ctx.Err(), strings.Join(s.Running(), ", "))
	}
}
