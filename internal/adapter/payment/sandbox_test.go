package payment_test

import (
	"context"
	"testing"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/payment"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandbox_Outcomes(t *testing.T) {
	cases := map[string]domain.PaymentOutcome{
		"tok_visa":           domain.PaymentSucceeded,
		payment.TokenDecline: domain.PaymentFailed,
		payment.TokenCancel:  domain.PaymentCancelled,
		payment.TokenPending: domain.PaymentPending,
	}

	for token, want := range cases {
		t.Run(token, func(t *testing.T) {
			res, err := payment.NewSandbox().Submit(context.Background(), domain.PaymentRequest{
				IdempotencyKey: "k-" + token,
				Amount:         decimal.RequireFromString("103.20"),
				Currency:       "USD",
				Token:          token,
			})
			require.NoError(t, err)
			assert.Equal(t, want, res.Outcome)
			assert.Equal(t, "sbx_k-"+token, res.ConfirmationID)
		})
	}
}

func TestSandbox_ErrorToken(t *testing.T) {
	_, err := payment.NewSandbox().Submit(context.Background(), domain.PaymentRequest{Token: payment.TokenError})

	assert.ErrorIs(t, err, payment.ErrSandboxUnavailable)
}

func TestSandbox_SameKeyChargesOnce(t *testing.T) {
	sb := payment.NewSandbox()
	req := domain.PaymentRequest{IdempotencyKey: "sess-0", Token: "tok_visa"}

	first, err := sb.Submit(context.Background(), req)
	require.NoError(t, err)
	second, err := sb.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, sb.Charges())
}

func TestSandbox_Refund(t *testing.T) {
	sb := payment.NewSandbox()
	res, err := sb.Submit(context.Background(), domain.PaymentRequest{IdempotencyKey: "sess-1", Token: "tok_visa"})
	require.NoError(t, err)

	require.NoError(t, sb.Refund(context.Background(), domain.RefundRequest{ConfirmationID: res.ConfirmationID}))
	assert.True(t, sb.Refunded(res.ConfirmationID))

	assert.ErrorIs(t, sb.Refund(context.Background(), domain.RefundRequest{ConfirmationID: "nope"}), payment.ErrUnknownCharge)
}
