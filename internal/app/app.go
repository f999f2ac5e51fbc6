package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"homeworkbot/internal/config"
	"homeworkbot/internal/notifier"
	"homeworkbot/internal/poller"
	"homeworkbot/internal/practicum"
	"homeworkbot/internal/runtime/supervisor"
	"homeworkbot/internal/runtime/watchdog"
	"homeworkbot/internal/storage"
	telegram "homeworkbot/internal/transport/telegram/adapter"
	logx "homeworkbot/pkg/logx"
)

// Options tune how New builds the App.
type Options struct {
	// ConfigPath is an optional JSON/YAML file; "" means defaults plus environment.
	ConfigPath string
	// LookupEnv replaces os.LookupEnv (tests).
	LookupEnv func(string) (string, bool)
	// LogOutput replaces stdout for console logs (tests).
	LogOutput io.Writer
}

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	loop  *poller.Loop
	notif *notifier.Notifier
	wd    *watchdog.Watchdog

	// stallBudget is how long past the poll interval a cycle may take
	// before the watchdog stops pinging.
	stallBudget time.Duration
	startedAt   time.Time
}

// New loads configuration, checks credentials and wires every component.
// A missing credential is reported before any network call is made, and New
// makes no network calls at all: Telegram and API failures surface in cycles.
func New(opts Options) (_ *App, err error) {
	cfgm := config.NewManager(opts.ConfigPath)
	if opts.LookupEnv != nil {
		cfgm.SetLookupEnv(opts.LookupEnv)
	}
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	if err := config.CheckCredentials(cfg); err != nil {
		bootLog := logx.NewWriter(logOut(opts), "INFO").With(logx.String("comp", "app"))
		bootLog.Error("startup aborted", logx.Err(err))
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	interval, err := poller.ParseInterval(cfg.Poll.Interval)
	if err != nil {
		return nil, err
	}

	logCfg := mapLogConfig(cfg)
	logCfg.Out = opts.LogOutput
	logSvc, log := logx.New(logCfg)
	defer func() {
		if err != nil {
			_ = logSvc.Close()
		}
	}()
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	tgTimeout, err := config.ParseDurationOrDefault("telegram.timeout", cfg.Telegram.Timeout, 15*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:   cfg.Telegram.Token,
		APIURL:  cfg.Telegram.APIURL,
		Offline: true,
		Timeout: tgTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")))

	pcfg, err := mapPracticumConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := practicum.New(pcfg, log.With(logx.String("comp", "practicum")))
	if err != nil {
		return nil, err
	}

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, oerr := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if oerr != nil {
			return nil, oerr
		}
		store = st
		log.Info("journal enabled", logx.String("driver", sc.Driver))
	}

	loopOpts := []poller.Option{}
	if store != nil {
		loopOpts = append(loopOpts, poller.WithJournal(store, ncfg.Target.ChatID))
	}
	loop := poller.New(client, notif, interval, log.With(logx.String("comp", "poller")), loopOpts...)

	a := &App{
		cfgm:        cfgm,
		log:         log.With(logx.String("comp", "app")),
		logs:        logSvc,
		store:       store,
		loop:        loop,
		notif:       notif,
		stallBudget: pcfg.Timeout + tgTimeout + time.Minute,
	}
	a.wd = watchdog.New(log.With(logx.String("comp", "watchdog")), a.healthy)
	return a, nil
}

func logOut(opts Options) io.Writer {
	if opts.LogOutput != nil {
		return opts.LogOutput
	}
	return os.Stdout
}

// Loop exposes the poll loop (tests and diagnostics).
func (a *App) Loop() *poller.Loop { return a.loop }

// Run starts the poll loop and its helpers and blocks until ctx is cancelled
// or a supervised goroutine fails. Cleanup happens before it returns.
func (a *App) Run(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.startedAt = time.Now()

	// transactional config reload: validate before commit/publish
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := config.Validate(cfg); err != nil {
			return err
		}
		_, err := poller.ParseInterval(cfg.Poll.Interval)
		return err
	})

	a.logLastJournalEntry(ctx)

	a.sup.Go("poller", a.loop.Run)
	a.sup.Go("config.watch", a.cfgm.Watch)
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) { a.reloadLoop(c, sub) })
	a.sup.Go("watchdog", a.wd.Run)

	a.wd.Ready()
	a.log.Info("bot started", logx.Duration("interval", a.loop.Interval()), logx.Bool("config_file", a.cfgm.HasFile()))

	<-a.sup.Context().Done()
	return a.stop()
}

func (a *App) logLastJournalEntry(ctx context.Context) {
	if a.store == nil {
		return
	}
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	last, err := a.store.Recent(c, 1)
	if err != nil {
		a.log.Warn("journal read failed", logx.Err(err))
		return
	}
	if len(last) == 0 {
		return
	}
	e := last[0]
	a.log.Info("last journal entry",
		logx.Time("at", e.At),
		logx.String("kind", string(e.Kind)),
		logx.String("homework", e.Homework),
		logx.Bool("delivered", e.Delivered),
	)
}

// healthy reports whether the poll loop finished a cycle recently enough.
func (a *App) healthy() bool {
	return !a.loop.Overdue(time.Now(), a.startedAt, a.stallBudget)
}

func (a *App) reloadLoop(c context.Context, sub chan *config.Config) {
	defer a.cfgm.Unsubscribe(sub)
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-c.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			a.applyConfig(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	for _, s := range sections {
		switch s {
		case "credentials", "practicum", "storage":
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	a.logs.Apply(mapLogConfig(newCfg))

	if d, err := poller.ParseInterval(newCfg.Poll.Interval); err != nil {
		a.log.Warn("invalid poll interval; keeping previous", logx.Err(err))
	} else {
		a.loop.SetInterval(d)
	}

	if ncfg, err := mapNotifierConfig(newCfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) stop() error {
	a.wd.Stopping()
	a.log.Info("stopping")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	step := func(name string, fn func(context.Context) error) {
		start := time.Now()
		if err := fn(ctx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	var runErr error
	step("supervisor", func(c context.Context) error {
		runErr = a.sup.Stop(c)
		return runErr
	})
	step("storage", func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return runErr
}
