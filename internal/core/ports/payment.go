package ports

import (
	"context"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
)

type PaymentProvider interface {
	Name() string
	Submit(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResult, error)
	Refund(ctx context.Context, req domain.RefundRequest) error
}
