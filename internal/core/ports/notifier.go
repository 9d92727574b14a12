package ports

import (
	"context"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
)

type BookingNotifier interface {
	NotifyBookingConfirmed(ctx context.Context, booking *domain.Booking)
}
