package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
)

type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Gateway talks to an HTTP card gateway. Every request carries an
// Idempotence-Key so a retried submission is answered with the original
// payment.
type Gateway struct {
	// baseURL is the gateway root, without trailing slash.
	baseURL string

	// apiKey is sent as a bearer token.
	apiKey string

	hc *http.Client
}

func NewGateway(cfg GatewayConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		hc:      &http.Client{Timeout: timeout},
	}
}

func (g *Gateway) Name() string {
	return "gateway"
}

type gatewayAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type paymentBody struct {
	Amount        gatewayAmount     `json:"amount"`
	PaymentMethod paymentMethod     `json:"payment_method"`
	Capture       bool              `json:"capture"`
	Description   string            `json:"description,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type paymentMethod struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

type paymentResponse struct {
	ID                  string `json:"id"`
	Status              string `json:"status"`
	CancellationDetails *struct {
		Reason string `json:"reason"`
	} `json:"cancellation_details,omitempty"`
}

type refundBody struct {
	PaymentID   string        `json:"payment_id"`
	Amount      gatewayAmount `json:"amount"`
	Description string        `json:"description,omitempty"`
}

type gatewayError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (g *Gateway) Submit(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResult, error) {
	method := req.Method
	if method == "" {
		method = "bank_card"
	}

	body := paymentBody{
		Amount:        gatewayAmount{Value: req.Amount.StringFixed(2), Currency: req.Currency},
		PaymentMethod: paymentMethod{Type: method, Token: req.Token},
		Capture:       true,
		Description:   req.Description,
		Metadata:      req.Metadata,
	}

	status, raw, err := g.post(ctx, "/v3/payments", req.IdempotencyKey, body)
	if err != nil {
		return domain.PaymentResult{}, err
	}

	switch {
	case status == http.StatusPaymentRequired || status == http.StatusBadRequest:
		var ge gatewayError
		_ = json.Unmarshal(raw, &ge)
		return domain.PaymentResult{Outcome: domain.PaymentFailed, Reason: ge.Description}, nil
	case status >= 300:
		return domain.PaymentResult{}, fmt.Errorf("gateway: create payment: unexpected status %d", status)
	}

	var resp paymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.PaymentResult{}, fmt.Errorf("gateway: decode payment: %w", err)
	}

	return resp.result(), nil
}

func (r paymentResponse) result() domain.PaymentResult {
	out := domain.PaymentResult{ConfirmationID: r.ID}

	switch r.Status {
	case "succeeded":
		out.Outcome = domain.PaymentSucceeded
	case "pending", "waiting_for_capture":
		out.Outcome = domain.PaymentPending
	case "canceled", "cancelled":
		// Only a shopper-initiated cancel goes back to details; anything the
		// issuer or gateway cancelled is a failed payment.
		out.Outcome = domain.PaymentCancelled
		if d := r.CancellationDetails; d != nil && d.Reason != "" && d.Reason != "canceled_by_user" {
			out.Outcome = domain.PaymentFailed
			out.Reason = d.Reason
		}
	default:
		out.Outcome = domain.PaymentFailed
		out.Reason = r.Status
	}

	return out
}

func (g *Gateway) Refund(ctx context.Context, req domain.RefundRequest) error {
	body := refundBody{
		PaymentID:   req.ConfirmationID,
		Amount:      gatewayAmount{Value: req.Amount.StringFixed(2), Currency: req.Currency},
		Description: req.Reason,
	}

	status, _, err := g.post(ctx, "/v3/refunds", "refund-"+req.ConfirmationID, body)
	if err != nil {
		return err
	}

	if status >= 300 {
		return fmt.Errorf("gateway: refund %s: unexpected status %d", req.ConfirmationID, status)
	}

	return nil
}

func (g *Gateway) post(ctx context.Context, path, idempotenceKey string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: encode %s: %w", path, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: build %s: %w", path, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", idempotenceKey)
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.hc.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: read %s: %w", path, err)
	}

	return resp.StatusCode, raw, nil
}
