package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/google/uuid"
)

// Magic tokens understood by the sandbox. Any other token succeeds.
const (
	TokenDecline = "tok_decline"
	TokenCancel  = "tok_cancel"
	TokenPending = "tok_pending"
	TokenError   = "tok_error"
)

var (
	ErrSandboxUnavailable = errors.New("sandbox: provider unavailable")
	ErrUnknownCharge      = errors.New("unknown charge")
)

type sandboxCharge struct {
	req      domain.PaymentRequest
	outcome  domain.PaymentOutcome
	refunded bool
}

// Sandbox is a deterministic in-process provider. The confirmation id is
// derived from the idempotency key, so resubmitting the same key never
// creates a second charge.
type Sandbox struct {
	mu      sync.Mutex
	charges map[string]*sandboxCharge
}

func NewSandbox() *Sandbox {
	return &Sandbox{charges: make(map[string]*sandboxCharge)}
}

func (s *Sandbox) Name() string {
	return "sandbox"
}

func (s *Sandbox) Submit(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentResult{}, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	id := "sbx_" + key

	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.charges[id]; ok {
		return domain.PaymentResult{ConfirmationID: id, Outcome: prior.outcome}, nil
	}

	var result domain.PaymentResult
	switch req.Token {
	case TokenError:
		return domain.PaymentResult{}, ErrSandboxUnavailable
	case TokenDecline:
		result = domain.PaymentResult{ConfirmationID: id, Outcome: domain.PaymentFailed, Reason: "card declined"}
	case TokenCancel:
		result = domain.PaymentResult{ConfirmationID: id, Outcome: domain.PaymentCancelled}
	case TokenPending:
		result = domain.PaymentResult{ConfirmationID: id, Outcome: domain.PaymentPending}
	default:
		result = domain.PaymentResult{ConfirmationID: id, Outcome: domain.PaymentSucceeded}
	}

	s.charges[id] = &sandboxCharge{req: req, outcome: result.Outcome}

	return result, nil
}

// Refund is idempotent per charge.
func (s *Sandbox) Refund(_ context.Context, req domain.RefundRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.charges[req.ConfirmationID]
	if !ok {
		return ErrUnknownCharge
	}
	c.refunded = true

	return nil
}

func (s *Sandbox) Refunded(confirmationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.charges[confirmationID]

	return ok && c.refunded
}

// Charges counts distinct charges taken, refunded or not.
func (s *Sandbox) Charges() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.charges)
}
