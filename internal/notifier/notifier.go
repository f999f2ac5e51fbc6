// Package notifier delivers text messages to the one configured chat.
package notifier

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"homeworkbot/internal/homework"
	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type Config struct {
	Target     kit.ChatTarget
	RatePerSec int
}

// Notifier sends messages through a transport Sender to a fixed target.
// It is safe for concurrent use.
type Notifier struct {
	sender kit.Sender
	log    logx.Logger

	mu      sync.Mutex
	target  kit.ChatTarget
	limiter *rate.Limiter
}

func New(cfg Config, sender kit.Sender, log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	n := &Notifier{sender: sender, log: log}
	n.Apply(cfg)
	return n
}

// Apply swaps the rate limit and thread target. The chat id is kept as is
// once set, since credentials are read only at startup.
func (n *Notifier) Apply(cfg Config) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.target.ChatID == 0 {
		n.target.ChatID = cfg.Target.ChatID
	}
	n.target.ThreadID = cfg.Target.ThreadID
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	n.limiter = rate.NewLimiter(rate.Limit(rps), rps)
}

// Notify sends text. Failures are logged and returned as *homework.SendMessageError.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	to := n.target
	lim := n.limiter
	n.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return &homework.SendMessageError{Err: err}
	}
	ref, err := n.sender.SendText(ctx, to, text, &kit.SendOptions{DisablePreview: true})
	if err != nil {
		n.log.Error("message delivery failed", logx.Int64("chat_id", to.ChatID), logx.Err(err))
		return &homework.SendMessageError{Err: err}
	}
	n.log.Debug("message sent", logx.Int64("chat_id", to.ChatID), logx.Int("message_id", ref.MessageID))
	return nil
}
