package ports

import (
	"context"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
)

type TierCatalog interface {
	ListByEvent(ctx context.Context, eventID string) ([]domain.TicketTier, error)
}

// BookingRepository is the authoritative commit endpoint. Persist must check
// and consume inventory for every item and store the booking as one unit:
// either everything is written or nothing is.
type BookingRepository interface {
	Persist(ctx context.Context, draft *domain.BookingDraft) (*domain.Booking, error)
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	GetByPaymentToken(ctx context.Context, token string) (*domain.Booking, error)
}

type CatalogInvalidator interface {
	Invalidate(ctx context.Context, eventID string) error
}
