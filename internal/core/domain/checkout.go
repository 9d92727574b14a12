package domain

import "github.com/shopspring/decimal"

type CheckoutState string

const (
	StateSelecting         CheckoutState = "selecting"
	StateDetailsCollection CheckoutState = "details_collection"
	StatePayment           CheckoutState = "payment"
	StateConfirmed         CheckoutState = "confirmed"
)

type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "succeeded"
	PaymentFailed    PaymentOutcome = "failed"
	PaymentCancelled PaymentOutcome = "cancelled"
	PaymentPending   PaymentOutcome = "pending"
)

type PaymentRequest struct {
	IdempotencyKey string
	Amount         decimal.Decimal
	Currency       string
	Method         string
	Token          string
	Description    string
	Metadata       map[string]string
}

// PaymentResult is all the checkout core knows about a payment attempt.
// ConfirmationID is the single-use token the commit step keys on.
type PaymentResult struct {
	ConfirmationID string
	Outcome        PaymentOutcome
	Reason         string
}

type RefundRequest struct {
	ConfirmationID string
	Amount         decimal.Decimal
	Currency       string
	Reason         string
}
