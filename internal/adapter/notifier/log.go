package notifier

import (
	"context"
	"log/slog"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
)

// LogNotifier is used when no realtime channel is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyBookingConfirmed(ctx context.Context, booking *domain.Booking) {
	n.log.InfoContext(ctx, "booking confirmed",
		"reference", booking.Reference,
		"event_id", booking.EventID,
		"quantity", booking.Quantity(),
		"total", domain.FormatMoney(booking.TotalAmount),
		"currency", booking.Currency,
	)
}
