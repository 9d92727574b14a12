package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/ports"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/platform/metrics"
	"github.com/google/uuid"
)

const (
	msgPaymentFailed   = "payment failed, please retry"
	msgPaymentPending  = "waiting for payment confirmation"
	msgBookingFailed   = "booking failed, please retry"
	msgCommitInFlight  = "your booking is still being finalised, please wait"
	msgPaymentCanceled = "payment cancelled"
)

// PaymentInput is what the shopper hands over at the payment step. Token is
// an opaque provider token; the core never inspects it.
type PaymentInput struct {
	Method string `json:"method"`
	Token  string `json:"token"`
}

// SessionView is an immutable snapshot of a checkout session for rendering.
type SessionView struct {
	ID                   string                  `json:"id"`
	EventID              string                  `json:"event_id"`
	State                domain.CheckoutState    `json:"state"`
	Selection            domain.Selection        `json:"selection"`
	Pricing              domain.PricingBreakdown `json:"pricing"`
	Attendee             domain.AttendeeInfo     `json:"attendee"`
	Message              string                  `json:"message,omitempty"`
	Reference            string                  `json:"reference,omitempty"`
	AwaitingConfirmation bool                    `json:"awaiting_confirmation"`
	Tiers                []domain.TicketTier     `json:"tiers"`
	MaxPerPerson         int                     `json:"max_per_person"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

type sessionDeps struct {
	catalog      ports.TierCatalog
	payments     ports.PaymentProvider
	reservations *ReservationService
	fees         domain.FeeSchedule
	maxPerPerson int
	metrics      *metrics.Metrics
	log          *slog.Logger
	now          func() time.Time
}

// CheckoutSession is one shopper's walk through selecting, details,
// payment and confirmed. All fields are guarded by mu. Pay and
// CompletePayment drop the lock while talking to the provider and the
// repository; inFlight keeps other transitions out in the meantime.
type CheckoutSession struct {
	mu   sync.Mutex
	deps *sessionDeps

	id        uuid.UUID
	eventID   string
	state     domain.CheckoutState
	tiers     []domain.TicketTier
	engine    domain.SelectionEngine
	selection domain.Selection
	attendee  domain.AttendeeInfo
	message   string
	reference string

	// captured is a succeeded payment that has not been booked yet. Later
	// commit attempts reuse it instead of charging again.
	captured       *domain.PaymentResult
	confirmedToken string
	awaiting       string
	attempt        int

	inFlight  bool
	updatedAt time.Time
}

func newCheckoutSession(deps *sessionDeps, eventID string, tiers []domain.TicketTier) *CheckoutSession {
	s := &CheckoutSession{
		deps:      deps,
		id:        uuid.New(),
		eventID:   eventID,
		state:     domain.StateSelecting,
		selection: domain.Selection{},
		updatedAt: deps.now(),
	}
	s.setTiersLocked(tiers)

	return s
}

func (s *CheckoutSession) ID() string {
	return s.id.String()
}

func (s *CheckoutSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.viewLocked()
}

func (s *CheckoutSession) SetQuantity(tierID string, quantity int) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked("set_quantity", domain.StateSelecting); err != nil {
		return s.viewLocked(), err
	}

	s.message = ""
	next := s.engine.SetQuantity(s.selection, tierID, quantity)

	tier, known := s.engine.Tiers[tierID]
	switch {
	case !known:
		s.message = fmt.Sprintf("ticket tier %s is not available for this event", tierID)
	case quantity > next[tierID]:
		s.message = s.clampMessage(tier, next)
	}

	s.selection = next
	s.touchLocked("set_quantity", "ok")

	return s.viewLocked(), nil
}

func (s *CheckoutSession) clampMessage(tier domain.TicketTier, next domain.Selection) string {
	ceiling := s.engine.Ceiling(tier.ID)
	switch {
	case ceiling == 0:
		return fmt.Sprintf("%s is sold out", tier.Name)
	case next[tier.ID] == s.selection[tier.ID] && next[tier.ID] < ceiling:
		return fmt.Sprintf("maximum %d tickets per order", s.engine.MaxPerPerson)
	case tier.Available() < s.engine.MaxPerPerson:
		return fmt.Sprintf("only %d left for %s", tier.Available(), tier.Name)
	default:
		return fmt.Sprintf("maximum %d tickets per order", s.engine.MaxPerPerson)
	}
}

func (s *CheckoutSession) Proceed() (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked("proceed", domain.StateSelecting); err != nil {
		return s.viewLocked(), err
	}

	if s.selection.IsEmpty() {
		s.message = domain.ErrEmptySelection.Error()
		s.touchLocked("proceed", "rejected")
		return s.viewLocked(), domain.FieldErrors{{Field: "selection", Message: domain.ErrEmptySelection.Error()}}
	}

	if _, err := s.deps.fees.Price(s.selection, s.engine.Tiers); err != nil {
		s.message = err.Error()
		s.touchLocked("proceed", "rejected")
		return s.viewLocked(), err
	}

	s.state = domain.StateDetailsCollection
	s.message = ""
	s.touchLocked("proceed", "ok")

	return s.viewLocked(), nil
}

func (s *CheckoutSession) Back() (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked("back", domain.StateDetailsCollection); err != nil {
		return s.viewLocked(), err
	}

	s.state = domain.StateSelecting
	s.message = ""
	s.touchLocked("back", "ok")

	return s.viewLocked(), nil
}

// SubmitDetails keeps whatever was typed even when validation fails, so the
// shopper only fixes the named fields.
func (s *CheckoutSession) SubmitDetails(info domain.AttendeeInfo) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked("submit_details", domain.StateDetailsCollection); err != nil {
		return s.viewLocked(), err
	}

	s.attendee = info.Normalized()
	if err := s.attendee.Validate(); err != nil {
		s.message = err.Error()
		s.touchLocked("submit_details", "rejected")
		return s.viewLocked(), err
	}

	s.state = domain.StatePayment
	s.message = ""
	s.touchLocked("submit_details", "ok")

	return s.viewLocked(), nil
}

func (s *CheckoutSession) CancelPayment() (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked("cancel_payment", domain.StatePayment); err != nil {
		return s.viewLocked(), err
	}

	if s.captured != nil {
		s.message = "payment already captured, retry to finish your booking"
		s.touchLocked("cancel_payment", "rejected")
		return s.viewLocked(), fmt.Errorf("%w: payment already captured", domain.ErrInvalidTransition)
	}

	if s.awaiting != "" {
		s.message = msgPaymentPending
		s.touchLocked("cancel_payment", "rejected")
		return s.viewLocked(), fmt.Errorf("%w: payment confirmation pending", domain.ErrInvalidTransition)
	}

	s.state = domain.StateDetailsCollection
	s.message = ""
	s.touchLocked("cancel_payment", "ok")

	return s.viewLocked(), nil
}

// Pay submits the payment and commits the booking. When an earlier attempt
// captured a payment but the booking write failed, Pay retries the commit
// with that payment and does not charge again.
func (s *CheckoutSession) Pay(ctx context.Context, in PaymentInput) (SessionView, error) {
	s.mu.Lock()

	if err := s.guardLocked("pay", domain.StatePayment); err != nil {
		defer s.mu.Unlock()
		return s.viewLocked(), err
	}

	if s.awaiting != "" {
		defer s.mu.Unlock()
		s.message = msgPaymentPending
		return s.viewLocked(), fmt.Errorf("%w: payment confirmation pending", domain.ErrTransitionInFlight)
	}

	snap, err := s.snapshotLocked()
	if err != nil {
		defer s.mu.Unlock()
		s.message = err.Error()
		return s.viewLocked(), err
	}

	captured := s.captured
	req := domain.PaymentRequest{
		IdempotencyKey: fmt.Sprintf("%s-%d", s.id, s.attempt),
		Amount:         snap.Pricing.Total,
		Currency:       snap.Pricing.Currency,
		Method:         in.Method,
		Token:          in.Token,
		Description:    fmt.Sprintf("%d tickets for event %s", snap.Selection.Total(), s.eventID),
		Metadata: map[string]string{
			"session_id": s.id.String(),
			"event_id":   s.eventID,
			"email":      s.attendee.Email,
		},
	}
	s.inFlight = true
	s.mu.Unlock()

	if captured != nil {
		return s.commit(ctx, *captured, snap)
	}

	if snap.Pricing.Total.IsZero() {
		return s.settle(ctx, domain.PaymentResult{
			ConfirmationID: "free-" + req.IdempotencyKey,
			Outcome:        domain.PaymentSucceeded,
		}, nil, snap)
	}

	result, err := s.deps.payments.Submit(ctx, req)

	return s.settle(ctx, result, err, snap)
}

// CompletePayment applies an asynchronous provider result. Only the payment
// this session submitted is accepted. A repeated callback for an already
// confirmed session returns the same booking.
func (s *CheckoutSession) CompletePayment(ctx context.Context, result domain.PaymentResult) (SessionView, error) {
	s.mu.Lock()

	if s.state == domain.StateConfirmed && result.ConfirmationID != "" && result.ConfirmationID == s.confirmedToken {
		defer s.mu.Unlock()
		s.touchLocked("complete_payment", "duplicate")
		return s.viewLocked(), nil
	}

	if err := s.guardLocked("complete_payment", domain.StatePayment); err != nil {
		defer s.mu.Unlock()
		return s.viewLocked(), err
	}

	if !s.expectsLocked(result.ConfirmationID) {
		defer s.mu.Unlock()
		s.deps.metrics.Transition("complete_payment", "unexpected_payment")
		s.deps.log.WarnContext(ctx, "payment result for a payment this session is not waiting on",
			"session_id", s.ID(),
			"confirmation_id", result.ConfirmationID,
		)
		return s.viewLocked(), fmt.Errorf("%w: payment %q is not awaited by this session", domain.ErrInvalidTransition, result.ConfirmationID)
	}

	snap, err := s.snapshotLocked()
	if err != nil {
		defer s.mu.Unlock()
		return s.viewLocked(), err
	}

	s.inFlight = true
	s.mu.Unlock()

	return s.settle(ctx, result, nil, snap)
}

// Reset returns an idle session to an empty selection. A captured payment
// that was never booked is refunded first. A payment still waiting for its
// confirmation blocks the reset.
func (s *CheckoutSession) Reset(ctx context.Context) (SessionView, error) {
	s.mu.Lock()

	if s.inFlight {
		defer s.mu.Unlock()
		s.deps.metrics.Transition("reset", "in_flight")
		return s.viewLocked(), domain.ErrTransitionInFlight
	}

	if s.awaiting != "" {
		defer s.mu.Unlock()
		s.message = msgPaymentPending
		s.deps.metrics.Transition("reset", "rejected")
		return s.viewLocked(), fmt.Errorf("%w: payment confirmation pending", domain.ErrInvalidTransition)
	}

	captured := s.captured
	var amount domain.PricingBreakdown
	if captured != nil {
		if snap, err := s.snapshotLocked(); err == nil {
			amount = snap.Pricing
		}
	}
	s.inFlight = true
	s.mu.Unlock()

	if captured != nil {
		s.refund(ctx, *captured, amount, "checkout reset")
	}

	tiers, err := s.deps.catalog.ListByEvent(ctx, s.eventID)
	if err != nil {
		s.deps.log.WarnContext(ctx, "catalog refresh on reset failed", "event_id", s.eventID, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil && len(tiers) > 0 {
		s.setTiersLocked(tiers)
	}
	s.state = domain.StateSelecting
	s.selection = domain.Selection{}
	s.attendee = domain.AttendeeInfo{}
	s.captured = nil
	s.confirmedToken = ""
	s.awaiting = ""
	s.reference = ""
	s.message = ""
	s.attempt++
	s.inFlight = false
	s.touchLocked("reset", "ok")

	return s.viewLocked(), nil
}

type commitSnapshot struct {
	Selection domain.Selection
	Attendee  domain.AttendeeInfo
	Pricing   domain.PricingBreakdown
}

func (s *CheckoutSession) snapshotLocked() (commitSnapshot, error) {
	pricing, err := s.deps.fees.Price(s.selection, s.engine.Tiers)
	if err != nil {
		return commitSnapshot{}, err
	}

	return commitSnapshot{
		Selection: s.selection.Clone(),
		Attendee:  s.attendee,
		Pricing:   pricing,
	}, nil
}

func (s *CheckoutSession) settle(ctx context.Context, result domain.PaymentResult, submitErr error, snap commitSnapshot) (SessionView, error) {
	provider := s.deps.payments.Name()

	if submitErr != nil {
		s.deps.metrics.Payment(provider, "error")
		s.deps.log.WarnContext(ctx, "payment submission failed",
			"session_id", s.ID(),
			"provider", provider,
			"error", submitErr,
		)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.inFlight = false
		s.attempt++
		s.message = msgPaymentFailed
		s.touchLocked("pay", "payment_error")
		return s.viewLocked(), fmt.Errorf("%w: %v", domain.ErrPaymentFailed, submitErr)
	}

	s.deps.metrics.Payment(provider, string(result.Outcome))

	switch result.Outcome {
	case domain.PaymentSucceeded:
		return s.commit(ctx, result, snap)

	case domain.PaymentPending:
		s.mu.Lock()
		defer s.mu.Unlock()
		s.inFlight = false
		s.awaiting = result.ConfirmationID
		s.message = msgPaymentPending
		s.touchLocked("pay", "pending")
		return s.viewLocked(), nil

	case domain.PaymentCancelled:
		s.mu.Lock()
		defer s.mu.Unlock()
		s.inFlight = false
		s.awaiting = ""
		s.attempt++
		s.state = domain.StateDetailsCollection
		s.message = msgPaymentCanceled
		s.touchLocked("pay", "cancelled")
		return s.viewLocked(), domain.ErrPaymentCancelled

	default:
		s.mu.Lock()
		defer s.mu.Unlock()
		s.inFlight = false
		s.awaiting = ""
		s.attempt++
		s.message = msgPaymentFailed
		if result.Reason != "" {
			s.message = fmt.Sprintf("%s (%s)", msgPaymentFailed, result.Reason)
		}
		s.touchLocked("pay", "payment_failed")
		return s.viewLocked(), domain.ErrPaymentFailed
	}
}

func (s *CheckoutSession) commit(ctx context.Context, payment domain.PaymentResult, snap commitSnapshot) (SessionView, error) {
	s.mu.Lock()
	s.captured = &payment
	s.awaiting = ""
	s.mu.Unlock()

	booking, err := s.deps.reservations.Commit(ctx, CommitRequest{
		EventID:      s.eventID,
		Selection:    snap.Selection,
		Attendee:     snap.Attendee,
		Pricing:      snap.Pricing,
		PaymentToken: payment.ConfirmationID,
	})
	if err == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.inFlight = false
		s.state = domain.StateConfirmed
		s.reference = booking.Reference
		s.confirmedToken = payment.ConfirmationID
		s.captured = nil
		s.message = ""
		s.touchLocked("pay", "confirmed")
		return s.viewLocked(), nil
	}

	var soldOut *domain.SoldOutError
	if errors.As(err, &soldOut) {
		return s.recoverSoldOut(ctx, payment, snap, soldOut)
	}

	if errors.Is(err, domain.ErrCommitInProgress) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.inFlight = false
		s.message = msgCommitInFlight
		s.touchLocked("pay", "commit_in_progress")
		return s.viewLocked(), err
	}

	s.deps.metrics.CapturedUnbooked()
	s.deps.log.ErrorContext(ctx, "payment captured but booking not written",
		"alert", true,
		"session_id", s.ID(),
		"event_id", s.eventID,
		"payment_token", payment.ConfirmationID,
		"amount", domain.FormatMoney(snap.Pricing.Total),
		"currency", snap.Pricing.Currency,
		"error", err,
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.message = msgBookingFailed
	s.touchLocked("pay", "commit_failed")

	return s.viewLocked(), err
}

// recoverSoldOut refunds the captured payment, refreshes the snapshot and
// clamps the offending tier so the shopper can decide what to do. It never
// books fewer tickets than requested on its own.
func (s *CheckoutSession) recoverSoldOut(ctx context.Context, payment domain.PaymentResult, snap commitSnapshot, soldOut *domain.SoldOutError) (SessionView, error) {
	s.refund(ctx, payment, snap.Pricing, soldOut.Error())

	tiers, refreshErr := s.deps.catalog.ListByEvent(ctx, s.eventID)
	if refreshErr != nil {
		s.deps.log.WarnContext(ctx, "catalog refresh after sold out failed",
			"event_id", s.eventID,
			"error", refreshErr,
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if refreshErr == nil && len(tiers) > 0 {
		s.setTiersLocked(tiers)
	}

	if soldOut.TierName == "" {
		if t, ok := s.engine.Tiers[soldOut.TierID]; ok {
			soldOut.TierName = t.Name
		}
	}

	next := s.engine.Reconcile(s.selection)
	if q, ok := next[soldOut.TierID]; ok && q > soldOut.Available {
		if soldOut.Available > 0 {
			next[soldOut.TierID] = soldOut.Available
		} else {
			delete(next, soldOut.TierID)
		}
	}

	s.selection = next
	s.state = domain.StateSelecting
	s.captured = nil
	s.attempt++
	s.inFlight = false
	s.message = soldOut.Error()
	s.touchLocked("pay", "sold_out")

	return s.viewLocked(), soldOut
}

func (s *CheckoutSession) refund(ctx context.Context, payment domain.PaymentResult, pricing domain.PricingBreakdown, reason string) {
	err := s.deps.payments.Refund(ctx, domain.RefundRequest{
		ConfirmationID: payment.ConfirmationID,
		Amount:         pricing.Total,
		Currency:       pricing.Currency,
		Reason:         reason,
	})
	if err != nil {
		s.deps.log.ErrorContext(ctx, "refund of captured payment failed",
			"alert", true,
			"session_id", s.ID(),
			"payment_token", payment.ConfirmationID,
			"error", err,
		)
		return
	}

	s.deps.log.InfoContext(ctx, "captured payment refunded",
		"session_id", s.ID(),
		"payment_token", payment.ConfirmationID,
		"reason", reason,
	)
}

// expectsLocked reports whether id names the payment this session is waiting
// on or has already captured.
func (s *CheckoutSession) expectsLocked(id string) bool {
	switch {
	case id == "":
		return false
	case s.captured != nil:
		return s.captured.ConfirmationID == id
	default:
		return s.awaiting == id
	}
}

func (s *CheckoutSession) guardLocked(transition string, want domain.CheckoutState) error {
	if s.inFlight {
		s.deps.metrics.Transition(transition, "in_flight")
		return domain.ErrTransitionInFlight
	}

	if s.state != want {
		s.deps.metrics.Transition(transition, "invalid")
		return fmt.Errorf("%w: %s requires %s, session is %s", domain.ErrInvalidTransition, transition, want, s.state)
	}

	return nil
}

func (s *CheckoutSession) touchLocked(transition, outcome string) {
	s.updatedAt = s.deps.now()
	s.deps.metrics.Transition(transition, outcome)
}

func (s *CheckoutSession) setTiersLocked(tiers []domain.TicketTier) {
	s.tiers = append([]domain.TicketTier(nil), tiers...)
	s.engine = domain.NewSelectionEngine(s.tiers, s.deps.maxPerPerson)
}

func (s *CheckoutSession) viewLocked() SessionView {
	v := SessionView{
		ID:                   s.id.String(),
		EventID:              s.eventID,
		State:                s.state,
		Selection:            s.selection.Clone(),
		Attendee:             s.attendee,
		Message:              s.message,
		Reference:            s.reference,
		AwaitingConfirmation: s.awaiting != "",
		Tiers:                append([]domain.TicketTier(nil), s.tiers...),
		MaxPerPerson:         s.engine.MaxPerPerson,
		UpdatedAt:            s.updatedAt,
	}

	pricing, err := s.deps.fees.Price(s.selection, s.engine.Tiers)
	if err != nil && v.Message == "" {
		v.Message = err.Error()
	}
	v.Pricing = pricing

	return v
}

type idleState struct {
	lastActive time.Time
	busy       bool
	captured   string
	awaiting   string
}

func (s *CheckoutSession) idleState() idleState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := idleState{
		lastActive: s.updatedAt,
		busy:       s.inFlight,
		awaiting:   s.awaiting,
	}
	if s.captured != nil {
		st.captured = s.captured.ConfirmationID
	}

	return st
}
