package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrTierNotFound    = errors.New("ticket tier not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrEventNotFound   = errors.New("event not found")
)

var (
	ErrInvalidTransition  = errors.New("transition not allowed from current state")
	ErrTransitionInFlight = errors.New("another checkout step is still in progress")
	ErrEmptySelection     = errors.New("no tickets selected")
)

var (
	ErrAlreadyCommitted = errors.New("booking already committed for this payment")
	ErrCommitInProgress = errors.New("booking commit already in progress for this payment")
	ErrInvalidCommit    = errors.New("invalid commit request")
	ErrMixedCurrency    = errors.New("selected tiers use different currencies")
)

var (
	ErrPaymentFailed    = errors.New("payment failed")
	ErrPaymentCancelled = errors.New("payment cancelled")
)

var ErrValidation = errors.New("validation error")

// SoldOutError is returned by the authoritative commit when a tier no longer
// has enough inventory for the requested quantity.
type SoldOutError struct {
	TierID    string
	TierName  string
	Requested int
	Available int
}

func (e *SoldOutError) Error() string {
	name := e.TierName
	if name == "" {
		name = e.TierID
	}

	if e.Available <= 0 {
		return fmt.Sprintf("%s sold out", name)
	}

	return fmt.Sprintf("only %d left for %s", e.Available, name)
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, e.Message)
	}

	return strings.Join(msgs, "; ")
}

func (fe FieldErrors) Unwrap() error {
	return ErrValidation
}

func (fe FieldErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}

	return false
}
