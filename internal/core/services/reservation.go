package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/ports"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/platform/metrics"
	"github.com/google/uuid"
)

type CommitRequest struct {
	EventID      string
	Selection    domain.Selection
	Attendee     domain.AttendeeInfo
	Pricing      domain.PricingBreakdown
	PaymentToken string
}

// ReservationService turns a paid selection into a durable booking. The
// repository is the only component allowed to decide availability; ledger,
// invalidator and notifier are optional and may be nil.
type ReservationService struct {
	bookingRepo ports.BookingRepository
	ledger      ports.CommitLedger
	invalidator ports.CatalogInvalidator
	notifier    ports.BookingNotifier
	metrics     *metrics.Metrics
	log         *slog.Logger
	now         func() time.Time
}

func NewReservationService(
	bookingRepo ports.BookingRepository,
	ledger ports.CommitLedger,
	invalidator ports.CatalogInvalidator,
	notifier ports.BookingNotifier,
	m *metrics.Metrics,
	log *slog.Logger,
) *ReservationService {
	if log == nil {
		log = slog.Default()
	}

	return &ReservationService{
		bookingRepo: bookingRepo,
		ledger:      ledger,
		invalidator: invalidator,
		notifier:    notifier,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

func (s *ReservationService) Commit(ctx context.Context, req CommitRequest) (*domain.Booking, error) {
	start := time.Now()

	if err := validateCommit(req); err != nil {
		s.metrics.Commit("invalid", time.Since(start))
		return nil, err
	}

	if booking, ok := s.lookupCommitted(ctx, req.PaymentToken); ok {
		s.metrics.Commit("duplicate", time.Since(start))
		return booking, nil
	}

	claimed := s.claim(ctx, req.PaymentToken)
	if claimed == claimRejected {
		// A claim left behind by a commit whose ledger update failed looks
		// the same as one still running; the repository tells them apart.
		if booking, ok := s.committedByToken(ctx, req.PaymentToken); ok {
			s.metrics.Commit("duplicate", time.Since(start))
			return booking, nil
		}

		s.metrics.Commit("in_progress", time.Since(start))
		return nil, domain.ErrCommitInProgress
	}

	booking, err := s.bookingRepo.Persist(ctx, s.draft(req))
	if errors.Is(err, domain.ErrAlreadyCommitted) && booking != nil {
		s.log.InfoContext(ctx, "duplicate commit resolved to existing booking",
			"reference", booking.Reference,
			"event_id", booking.EventID,
		)
		s.complete(ctx, claimed, req.PaymentToken, booking.Reference)
		s.metrics.Commit("duplicate", time.Since(start))
		return booking, nil
	}

	if err != nil {
		s.release(ctx, claimed, req.PaymentToken)

		var soldOut *domain.SoldOutError
		if errors.As(err, &soldOut) {
			s.metrics.Commit("sold_out", time.Since(start))
			return nil, err
		}

		s.metrics.Commit("error", time.Since(start))
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	s.complete(ctx, claimed, req.PaymentToken, booking.Reference)
	s.afterCommit(ctx, booking)
	s.metrics.Commit("ok", time.Since(start))

	s.log.InfoContext(ctx, "booking committed",
		"booking_id", booking.ID.String(),
		"reference", booking.Reference,
		"event_id", booking.EventID,
		"quantity", booking.Quantity(),
		"total", domain.FormatMoney(booking.TotalAmount),
	)

	return booking, nil
}

func (s *ReservationService) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	if reference == "" {
		return nil, domain.ErrBookingNotFound
	}

	return s.bookingRepo.GetByReference(ctx, reference)
}

func validateCommit(req CommitRequest) error {
	if req.EventID == "" {
		return fmt.Errorf("%w: event id is required", domain.ErrInvalidCommit)
	}

	if req.PaymentToken == "" {
		return fmt.Errorf("%w: payment token is required", domain.ErrInvalidCommit)
	}

	if req.Selection.IsEmpty() {
		return fmt.Errorf("%w: %w", domain.ErrInvalidCommit, domain.ErrEmptySelection)
	}

	if req.Pricing.Currency == "" {
		return fmt.Errorf("%w: pricing has no currency", domain.ErrInvalidCommit)
	}

	for id, q := range req.Selection {
		if q <= 0 {
			return fmt.Errorf("%w: non-positive quantity for tier %s", domain.ErrInvalidCommit, id)
		}

		line, ok := req.Pricing.Line(id)
		if !ok || line.Quantity != q {
			return fmt.Errorf("%w: pricing does not match selection for tier %s", domain.ErrInvalidCommit, id)
		}
	}

	if len(req.Pricing.Lines) != len(req.Selection) {
		return fmt.Errorf("%w: pricing has lines outside the selection", domain.ErrInvalidCommit)
	}

	return nil
}

func (s *ReservationService) draft(req CommitRequest) *domain.BookingDraft {
	bookingID := uuid.New()

	items := make([]domain.BookingItem, 0, len(req.Pricing.Lines))
	for _, line := range req.Pricing.Lines {
		items = append(items, domain.BookingItem{
			ID:        uuid.New(),
			BookingID: bookingID,
			TierID:    line.TierID,
			TierName:  line.TierName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}

	return &domain.BookingDraft{
		ID:            bookingID,
		Reference:     domain.NewReference(),
		EventID:       req.EventID,
		PaymentToken:  req.PaymentToken,
		Attendee:      req.Attendee.Normalized(),
		Currency:      req.Pricing.Currency,
		Subtotal:      req.Pricing.Subtotal,
		ProcessingFee: req.Pricing.ProcessingFee,
		TotalAmount:   req.Pricing.Total,
		Status:        domain.BookingConfirmed,
		CreatedAt:     s.now().UTC(),
		Items:         items,
	}
}

type claimState int

const (
	claimSkipped claimState = iota
	claimHeld
	claimRejected
)

// lookupCommitted answers repeated tokens from the ledger without touching
// inventory. Ledger failures are logged and ignored: the repository's unique
// token constraint still holds.
func (s *ReservationService) lookupCommitted(ctx context.Context, token string) (*domain.Booking, bool) {
	if s.ledger == nil {
		return nil, false
	}

	ref, found, err := s.ledger.Lookup(ctx, token)
	if err != nil {
		s.log.WarnContext(ctx, "commit ledger lookup failed", "error", err)
		return nil, false
	}

	if !found {
		return nil, false
	}

	booking, err := s.bookingRepo.GetByReference(ctx, ref)
	if err != nil {
		s.log.WarnContext(ctx, "ledger reference not readable, falling back to repository",
			"reference", ref,
			"error", err,
		)
		return nil, false
	}

	return booking, true
}

// committedByToken finds a booking already written for the token and
// repairs the ledger entry that should have pointed at it.
func (s *ReservationService) committedByToken(ctx context.Context, token string) (*domain.Booking, bool) {
	booking, err := s.bookingRepo.GetByPaymentToken(ctx, token)
	if err != nil {
		if !errors.Is(err, domain.ErrBookingNotFound) {
			s.log.WarnContext(ctx, "booking lookup by payment token failed", "error", err)
		}
		return nil, false
	}

	if err := s.ledger.Complete(ctx, token, booking.Reference); err != nil {
		s.log.WarnContext(ctx, "commit ledger repair failed", "reference", booking.Reference, "error", err)
	}

	s.log.InfoContext(ctx, "stale commit claim resolved to existing booking",
		"reference", booking.Reference,
		"event_id", booking.EventID,
	)

	return booking, true
}

func (s *ReservationService) claim(ctx context.Context, token string) claimState {
	if s.ledger == nil {
		return claimSkipped
	}

	ok, err := s.ledger.Claim(ctx, token)
	if err != nil {
		s.log.WarnContext(ctx, "commit ledger claim failed", "error", err)
		return claimSkipped
	}

	if !ok {
		return claimRejected
	}

	return claimHeld
}

func (s *ReservationService) complete(ctx context.Context, state claimState, token, reference string) {
	if s.ledger == nil || state == claimRejected {
		return
	}

	if err := s.ledger.Complete(ctx, token, reference); err != nil {
		s.log.WarnContext(ctx, "commit ledger complete failed", "reference", reference, "error", err)
	}
}

func (s *ReservationService) release(ctx context.Context, state claimState, token string) {
	if state != claimHeld {
		return
	}

	if err := s.ledger.Release(ctx, token); err != nil {
		s.log.WarnContext(ctx, "commit ledger release failed", "error", err)
	}
}

func (s *ReservationService) afterCommit(ctx context.Context, booking *domain.Booking) {
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, booking.EventID); err != nil {
			s.log.WarnContext(ctx, "catalog cache invalidation failed",
				"event_id", booking.EventID,
				"error", err,
			)
		}
	}

	if s.notifier != nil {
		go s.notifier.NotifyBookingConfirmed(context.WithoutCancel(ctx), booking)
	}
}
