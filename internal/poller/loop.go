// Package poller runs the fetch -> validate -> parse -> notify -> sleep cycle.
package poller

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"homeworkbot/internal/homework"
	"homeworkbot/internal/storage"
	logx "homeworkbot/pkg/logx"
)

// Fetcher returns homework updates newer than since (Unix seconds).
type Fetcher interface {
	FetchSince(ctx context.Context, since int64) (homework.Response, error)
}

// Notifier delivers one text message to the chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Journal records outgoing messages.
type Journal interface {
	AppendJournal(ctx context.Context, e storage.JournalEntry) error
}

type State int

const (
	// StateNotified: a status change was delivered and the cursor advanced.
	StateNotified State = iota
	// StateIdle: the poll window had no homework updates.
	StateIdle
	// StateFailed: the cycle failed; a failure report was attempted.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotified:
		return "notified"
	case StateIdle:
		return "idle"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CycleResult describes one completed cycle.
type CycleResult struct {
	State   State
	Message string // text sent (or attempted) to the chat; empty when idle
	Err     error
	Cursor  int64
}

// Loop owns the poll cursor and runs cycles one after another.
type Loop struct {
	fetcher  Fetcher
	notifier Notifier
	journal  Journal
	log      logx.Logger
	chatID   int64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// cursor is touched only by the goroutine running Cycle/Run.
	cursor int64

	interval  atomic.Int64 // time.Duration
	pausing   atomic.Int64 // time.Duration of the sleep in progress or last taken
	lastCycle atomic.Int64 // unix nano
}

type Option func(*Loop)

func WithClock(now func() time.Time) Option { return func(l *Loop) { l.now = now } }

// WithSleep replaces the pause between cycles (used by tests).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Loop) { l.sleep = fn }
}

// WithJournal records every outgoing message; chatID is stored alongside.
func WithJournal(j Journal, chatID int64) Option {
	return func(l *Loop) {
		l.journal = j
		l.chatID = chatID
	}
}

func New(fetcher Fetcher, notifier Notifier, interval time.Duration, log logx.Logger, opts ...Option) *Loop {
	if log.IsZero() {
		log = logx.Nop()
	}
	l := &Loop{
		fetcher:  fetcher,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, o := range opts {
		o(l)
	}
	l.SetInterval(interval)
	l.cursor = l.now().Unix()
	return l
}

// SetInterval changes the pause used after the current cycle. Safe for concurrent use.
func (l *Loop) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	l.interval.Store(int64(d))
}

func (l *Loop) Interval() time.Duration { return time.Duration(l.interval.Load()) }

// Cursor returns the lower bound of the next poll window.
// Call it from the loop goroutine or after Run returned.
func (l *Loop) Cursor() int64 { return l.cursor }

// LastCycle returns when the most recent cycle finished (zero before the first one).
// Safe for concurrent use.
func (l *Loop) LastCycle() time.Time {
	ns := l.lastCycle.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Overdue reports whether no cycle has finished within the pause the loop
// is actually taking plus budget. since stands in for the last cycle before
// the first one completes. Safe for concurrent use.
func (l *Loop) Overdue(now, since time.Time, budget time.Duration) bool {
	last := l.LastCycle()
	if last.IsZero() {
		last = since
	}
	pause := time.Duration(l.pausing.Load())
	if pause <= 0 {
		pause = l.Interval()
	}
	return now.Sub(last) >= pause+budget
}

// Run executes cycles until ctx is cancelled. Every cycle is followed by the
// full interval pause, whatever its outcome.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("poll loop started", logx.Int64("cursor", l.cursor), logx.Duration("interval", l.Interval()))
	for {
		res := l.Cycle(ctx)
		if ctx.Err() != nil {
			break
		}
		l.log.Debug("cycle finished", logx.String("state", res.State.String()), logx.Int64("cursor", res.Cursor))
		pause := l.Interval()
		l.pausing.Store(int64(pause))
		if err := l.sleep(ctx, pause); err != nil {
			break
		}
	}
	l.log.Info("poll loop stopped", logx.Int64("cursor", l.cursor))
	return nil
}

// Cycle runs one fetch/validate/parse/notify step. It never panics and never
// returns an error: failures are reported through the notifier and described
// in the result.
func (l *Loop) Cycle(ctx context.Context) (res CycleResult) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("cycle panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			res = l.fail(ctx, fmt.Errorf("panic: %v", r))
		}
		l.lastCycle.Store(l.now().UnixNano())
	}()

	resp, err := l.fetcher.FetchSince(ctx, l.cursor)
	if err != nil {
		return l.fail(ctx, err)
	}

	out := homework.Evaluate(resp)
	switch out.Kind {
	case homework.OutcomeEmpty:
		l.log.Debug("no homework updates", logx.Int64("cursor", l.cursor))
		return CycleResult{State: StateIdle, Cursor: l.cursor}
	case homework.OutcomeInvalid:
		return l.fail(ctx, out.Err)
	}

	if err = l.notifier.Notify(ctx, out.Message); err != nil {
		l.record(ctx, storage.KindStatus, out.Message, out.Task, err, false)
		return l.fail(ctx, err)
	}

	if resp.CurrentDate != nil {
		l.cursor = *resp.CurrentDate
	} else {
		l.log.Warn("response has no current_date; cursor unchanged", logx.Int64("cursor", l.cursor))
	}
	// cursor recorded is the start of the next window
	l.record(ctx, storage.KindStatus, out.Message, out.Task, nil, true)
	l.log.Info("status change sent", logx.String("homework", deref(out.Task.Name)), logx.String("status", deref(out.Task.Status)), logx.Int64("cursor", l.cursor))
	return CycleResult{State: StateNotified, Message: out.Message, Cursor: l.cursor}
}

func (l *Loop) fail(ctx context.Context, err error) CycleResult {
	msg := homework.FailureMessage(err)
	res := CycleResult{State: StateFailed, Message: msg, Err: err, Cursor: l.cursor}
	if ctx.Err() != nil {
		// shutting down
		l.log.Debug("cycle aborted", logx.Err(err))
		return res
	}

	l.log.Error("cycle failed", logx.Err(err), logx.Int64("cursor", l.cursor))
	nerr := l.report(ctx, msg)
	if nerr != nil {
		l.log.Error("failure report not delivered", logx.Err(nerr))
	}
	l.record(ctx, storage.KindFailure, msg, homework.Task{}, err, nerr == nil)
	return res
}

// report sends a failure message; a panicking notifier is turned into an error.
func (l *Loop) report(ctx context.Context, msg string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("failure report panicked", logx.Any("panic", r))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.notifier.Notify(ctx, msg)
}

func (l *Loop) record(ctx context.Context, kind storage.EntryKind, text string, task homework.Task, err error, delivered bool) {
	if l.journal == nil {
		return
	}
	e := storage.JournalEntry{
		At:        l.now(),
		Kind:      kind,
		ChatID:    l.chatID,
		Homework:  deref(task.Name),
		Status:    deref(task.Status),
		Text:      text,
		Cursor:    l.cursor,
		Delivered: delivered,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if jerr := l.journal.AppendJournal(ctx, e); jerr != nil {
		l.log.Warn("journal append failed", logx.Err(jerr))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
