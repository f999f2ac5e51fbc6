package notifier

import (
	"context"
	"errors"
	"testing"

	"homeworkbot/internal/homework"
	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type fakeSender struct {
	err  error
	sent []sent
}

type sent struct {
	to   kit.ChatTarget
	text string
}

func (f *fakeSender) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	if f.err != nil {
		return kit.MessageRef{}, f.err
	}
	f.sent = append(f.sent, sent{to: to, text: text})
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func TestNotifySendsToFixedTarget(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	n := New(Config{Target: kit.ChatTarget{ChatID: 42, ThreadID: 3}, RatePerSec: 10}, fs, logx.Nop())

	if err := n.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(fs.sent) != 1 || fs.sent[0].text != "hello" {
		t.Fatalf("sent = %+v", fs.sent)
	}
	if fs.sent[0].to != (kit.ChatTarget{ChatID: 42, ThreadID: 3}) {
		t.Fatalf("target = %+v", fs.sent[0].to)
	}
}

func TestNotifyWrapsFailure(t *testing.T) {
	t.Parallel()
	cause := errors.New("chat not found")
	n := New(Config{Target: kit.ChatTarget{ChatID: 42}}, &fakeSender{err: cause}, logx.Nop())

	err := n.Notify(context.Background(), "hello")
	var sendErr *homework.SendMessageError
	if !errors.As(err, &sendErr) {
		t.Fatalf("err = %v, want *SendMessageError", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
}

func TestApplyKeepsChatID(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	n := New(Config{Target: kit.ChatTarget{ChatID: 42}}, fs, logx.Nop())
	n.Apply(Config{Target: kit.ChatTarget{ChatID: 99, ThreadID: 5}, RatePerSec: 2})

	if err := n.Notify(context.Background(), "x"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if fs.sent[0].to != (kit.ChatTarget{ChatID: 42, ThreadID: 5}) {
		t.Fatalf("target = %+v", fs.sent[0].to)
	}
}

func TestNotifyCancelledContext(t *testing.T) {
	t.Parallel()
	n := New(Config{Target: kit.ChatTarget{ChatID: 42}, RatePerSec: 1}, &fakeSender{}, logx.Nop())
	// Drain the single token so the next Wait has to block.
	if err := n.Notify(context.Background(), "first"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Notify(ctx, "second"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
