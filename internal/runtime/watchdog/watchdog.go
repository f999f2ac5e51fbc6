// Package watchdog speaks the systemd notify protocol: READY, STOPPING and
// periodic WATCHDOG pings while the process reports itself healthy.
// Outside systemd (no NOTIFY_SOCKET) every call is a no-op.
package watchdog

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "homeworkbot/pkg/logx"
)

type Watchdog struct {
	log     logx.Logger
	healthy func() bool

	notify  func(unsetEnvironment bool, state string) (bool, error)
	enabled func(unsetEnvironment bool) (time.Duration, error)
}

type Option func(*Watchdog)

// WithNotifier replaces daemon.SdNotify and daemon.SdWatchdogEnabled (used by tests).
func WithNotifier(notify func(bool, string) (bool, error), enabled func(bool) (time.Duration, error)) Option {
	return func(w *Watchdog) {
		if notify != nil {
			w.notify = notify
		}
		if enabled != nil {
			w.enabled = enabled
		}
	}
}

// New returns a watchdog that pings only while healthy() is true.
// A nil healthy means always healthy.
func New(log logx.Logger, healthy func() bool, opts ...Option) *Watchdog {
	if log.IsZero() {
		log = logx.Nop()
	}
	if healthy == nil {
		healthy = func() bool { return true }
	}
	w := &Watchdog{
		log:     log,
		healthy: healthy,
		notify:  daemon.SdNotify,
		enabled: daemon.SdWatchdogEnabled,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Watchdog) Ready()    { w.send(daemon.SdNotifyReady) }
func (w *Watchdog) Stopping() { w.send(daemon.SdNotifyStopping) }

func (w *Watchdog) send(state string) bool {
	sent, err := w.notify(false, state)
	if err != nil {
		w.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return false
	}
	if sent {
		w.log.Debug("sd_notify sent", logx.String("state", state))
	}
	return sent
}

// Run pings the systemd watchdog at half of WatchdogSec until ctx is done.
// It blocks until ctx is done even when the watchdog is disabled.
func (w *Watchdog) Run(ctx context.Context) error {
	d, err := w.enabled(false)
	if err != nil {
		w.log.Warn("watchdog config invalid; heartbeat disabled", logx.Err(err))
	}
	if err != nil || d <= 0 {
		<-ctx.Done()
		return nil
	}

	every := d / 2
	w.log.Info("watchdog heartbeat enabled", logx.Duration("every", every))
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if !w.healthy() {
				w.log.Warn("poll loop looks stuck; skipping watchdog ping")
				continue
			}
			w.send(daemon.SdNotifyWatchdog)
		}
	}
}
