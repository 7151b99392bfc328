// Package notify delivers outbound e-mail notifications.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher sends messages in the background. Delivery is best effort:
// failures are logged and never reported to the caller.
type Dispatcher struct {
	notifier Notifier
	from     string
	timeout  time.Duration
	log      *zap.Logger
}

func NewDispatcher(n Notifier, from string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{notifier: n, from: from, timeout: 30 * time.Second, log: log}
}

func (d *Dispatcher) Dispatch(msg Message) {
	if msg.From == "" {
		msg.From = d.from
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.notifier.Send(ctx, msg); err != nil {
			d.log.Warn("notification not delivered",
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
		}
	}()
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.log.Info("notification",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}
