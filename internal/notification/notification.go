package notification

import (
	"context"
	"log/slog"
)

const (
	// KindPointCharged is sent after points were credited to a user.
	KindPointCharged = "point_charged"
	// KindPointUsed is sent after points were debited from a user.
	KindPointUsed = "point_used"
)

// Message describes a notification payload.
type Message struct {
	Kind    string
	UserID  int64
	Amount  int64
	Balance int64
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification",
		slog.String("kind", message.Kind),
		slog.Int64("user_id", message.UserID),
		slog.Int64("amount", message.Amount),
		slog.Int64("balance", message.Balance),
	)
	return nil
}
