package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/handler"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/handler/dto"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/payment"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/repository/memory"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/services"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/platform/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const callbackSecret = "whsec_test"

func setupRouter(t *testing.T, gaTotal int) (*memory.Store, http.Handler) {
	t.Helper()

	store := memory.NewStore()
	store.SeedTiers(
		domain.TicketTier{ID: "ga", EventID: "evt-1", Name: "General", Type: "general", UnitPrice: decimal.RequireFromString("50.00"), Currency: "USD", TotalQuantity: gaTotal, Status: domain.TierOnSale},
		domain.TicketTier{ID: "vip", EventID: "evt-1", Name: "VIP", Type: "vip", UnitPrice: decimal.RequireFromString("150.00"), Currency: "USD", TotalQuantity: 5, Status: domain.TierOnSale},
	)

	log := logging.Discard()
	reservations := services.NewReservationService(store, nil, store, nil, nil, log)
	manager := services.NewCheckoutManager(store, payment.NewSandbox(), reservations, services.CheckoutSettings{
		MaxPerPerson: 10,
		Fees:         domain.DefaultFeeSchedule(),
		SessionTTL:   time.Hour,
	}, nil, log)

	h := handler.NewCheckoutHandler(manager, reservations, callbackSecret, log)

	return store, handler.NewRouter(h, nil, handler.Recovery(log))
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	return w
}

// callback posts a payment callback signed with secret.
func callback(t *testing.T, r http.Handler, secret string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(handler.SignatureHeader, handler.SignCallback(secret, raw))
	}
	r.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())

	return out
}

func startSession(t *testing.T, r http.Handler) string {
	t.Helper()

	w := do(t, r, http.MethodPost, "/api/checkout/sessions", dto.StartSessionRequest{EventID: "evt-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return decode[dto.SessionResponse](t, w).ID
}

// walkToPayment selects qty GA tickets and submits valid details.
func walkToPayment(t *testing.T, r http.Handler, id string, qty int) {
	t.Helper()

	base := "/api/checkout/sessions/" + id
	w := do(t, r, http.MethodPut, base+"/selection", dto.SetQuantityRequest{TierID: "ga", Quantity: qty})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodPost, base+"/proceed", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodPost, base+"/details", dto.DetailsRequest{Name: "Ada Lovelace", Email: "ada@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHandler_ListTiers(t *testing.T) {
	_, r := setupRouter(t, 100)

	w := do(t, r, http.MethodGet, "/api/events/evt-1/tiers", nil)

	require.Equal(t, http.StatusOK, w.Code)
	tiers := decode[[]dto.TierResponse](t, w)
	require.Len(t, tiers, 2)
	assert.Equal(t, "50.00", tiers[0].UnitPrice)
	assert.Equal(t, 100, tiers[0].Available)
}

func TestHandler_ListTiers_UnknownEvent(t *testing.T) {
	_, r := setupRouter(t, 100)

	w := do(t, r, http.MethodGet, "/api/events/nope/tiers", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_CheckoutHappyPath(t *testing.T) {
	store, r := setupRouter(t, 100)
	id := startSession(t, r)
	walkToPayment(t, r, id, 2)

	w := do(t, r, http.MethodPost, "/api/checkout/sessions/"+id+"/pay", dto.PayRequest{Method: "bank_card", Token: "tok_visa"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decode[dto.SessionResponse](t, w)
	assert.Equal(t, string(domain.StateConfirmed), session.State)
	assert.Equal(t, "100.00", session.Pricing.Subtotal)
	assert.Equal(t, "3.20", session.Pricing.ProcessingFee)
	assert.Equal(t, "103.20", session.Pricing.Total)
	require.NotEmpty(t, session.Reference)

	tiers, err := store.ListByEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 2, tiers[0].SoldQuantity)

	w = do(t, r, http.MethodGet, "/api/bookings/"+session.Reference, nil)

	require.Equal(t, http.StatusOK, w.Code)
	booking := decode[dto.BookingResponse](t, w)
	assert.Equal(t, "103.20", booking.TotalAmount)
	assert.Equal(t, "Ada Lovelace", booking.Attendee.Name)
	require.Len(t, booking.Items, 1)
	assert.Equal(t, 2, booking.Items[0].Quantity)
	assert.NotContains(t, w.Body.String(), "sbx_")
}

func TestHandler_SelectionIsClamped(t *testing.T) {
	_, r := setupRouter(t, 3)
	id := startSession(t, r)

	w := do(t, r, http.MethodPut, "/api/checkout/sessions/"+id+"/selection", dto.SetQuantityRequest{TierID: "ga", Quantity: 5})

	require.Equal(t, http.StatusOK, w.Code)
	session := decode[dto.SessionResponse](t, w)
	assert.Equal(t, 3, session.Selection["ga"])
	assert.Equal(t, "only 3 left for General", session.Message)
}

func TestHandler_ProceedWithEmptySelection(t *testing.T) {
	_, r := setupRouter(t, 100)
	id := startSession(t, r)

	w := do(t, r, http.MethodPost, "/api/checkout/sessions/"+id+"/proceed", nil)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "selection", resp.Fields[0].Field)
	require.NotNil(t, resp.Session)
	assert.Equal(t, string(domain.StateSelecting), resp.Session.State)
}

func TestHandler_DetailsValidation(t *testing.T) {
	_, r := setupRouter(t, 100)
	id := startSession(t, r)
	base := "/api/checkout/sessions/" + id

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPut, base+"/selection", dto.SetQuantityRequest{TierID: "ga", Quantity: 1}).Code)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, base+"/proceed", nil).Code)

	w := do(t, r, http.MethodPost, base+"/details", dto.DetailsRequest{Name: " ", Email: "not-an-email"})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	require.Len(t, resp.Fields, 2)
	assert.Equal(t, "name", resp.Fields[0].Field)
	assert.Equal(t, "email", resp.Fields[1].Field)
	assert.Equal(t, string(domain.StateDetailsCollection), resp.Session.State)
	assert.Equal(t, "not-an-email", resp.Session.Attendee.Email)
}

func TestHandler_OutOfOrderTransition(t *testing.T) {
	_, r := setupRouter(t, 100)
	id := startSession(t, r)

	w := do(t, r, http.MethodPost, "/api/checkout/sessions/"+id+"/pay", dto.PayRequest{Token: "tok_visa"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_DeclinedPayment(t *testing.T) {
	_, r := setupRouter(t, 100)
	id := startSession(t, r)
	walkToPayment(t, r, id, 1)

	w := do(t, r, http.MethodPost, "/api/checkout/sessions/"+id+"/pay", dto.PayRequest{Token: payment.TokenDecline})

	require.Equal(t, http.StatusPaymentRequired, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, string(domain.StatePayment), resp.Session.State)
}

func TestHandler_SoldOutAtCommit(t *testing.T) {
	_, r := setupRouter(t, 2)
	first := startSession(t, r)
	second := startSession(t, r)
	walkToPayment(t, r, first, 2)
	walkToPayment(t, r, second, 2)

	w := do(t, r, http.MethodPost, "/api/checkout/sessions/"+first+"/pay", dto.PayRequest{Token: "tok_visa"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/checkout/sessions/"+second+"/pay", dto.PayRequest{Token: "tok_visa"})

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, "ga", resp.TierID)
	require.NotNil(t, resp.Session)
	assert.Equal(t, string(domain.StateSelecting), resp.Session.State)
	assert.Zero(t, resp.Session.Selection["ga"])
}

func TestHandler_PendingPaymentCallback(t *testing.T) {
	_, r := setupRouter(t, 100)
	id := startSession(t, r)
	walkToPayment(t, r, id, 1)

	w := do(t, r, http.MethodPost, "/api/checkout/sessions/"+id+"/pay", dto.PayRequest{Token: payment.TokenPending})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[dto.SessionResponse](t, w).AwaitingConfirmation)

	result := dto.PaymentCallbackRequest{
		SessionID:      id,
		ConfirmationID: "sbx_" + id + "-0",
		Status:         "succeeded",
	}

	w = callback(t, r, callbackSecret, result)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	confirmed := decode[dto.SessionResponse](t, w)
	assert.Equal(t, string(domain.StateConfirmed), confirmed.State)

	w = callback(t, r, callbackSecret, result)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, confirmed.Reference, decode[dto.SessionResponse](t, w).Reference)
}

func TestHandler_CallbackSignatureRequired(t *testing.T) {
	store, r := setupRouter(t, 100)
	id := startSession(t, r)
	walkToPayment(t, r, id, 2)

	forged := dto.PaymentCallbackRequest{SessionID: id, ConfirmationID: "forged-123", Status: "succeeded"}

	tests := []struct {
		name   string
		secret string
	}{
		{"unsigned", ""},
		{"wrong secret", "whsec_guess"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := callback(t, r, tt.secret, forged)
			assert.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
		})
	}

	w := do(t, r, http.MethodGet, "/api/checkout/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(domain.StatePayment), decode[dto.SessionResponse](t, w).State)

	tiers, err := store.ListByEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Zero(t, tiers[0].SoldQuantity)
}

func TestHandler_CallbackForPaymentNeverSubmitted(t *testing.T) {
	store, r := setupRouter(t, 100)
	id := startSession(t, r)
	walkToPayment(t, r, id, 2)

	w := callback(t, r, callbackSecret, dto.PaymentCallbackRequest{SessionID: id, ConfirmationID: "forged-123", Status: "succeeded"})

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	resp := decode[dto.ErrorResponse](t, w)
	require.NotNil(t, resp.Session)
	assert.Equal(t, string(domain.StatePayment), resp.Session.State)
	assert.Empty(t, resp.Session.Reference)

	tiers, err := store.ListByEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Zero(t, tiers[0].SoldQuantity)
}

func TestHandler_BadRequests(t *testing.T) {
	_, r := setupRouter(t, 100)
	id := startSession(t, r)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown session", http.MethodGet, "/api/checkout/sessions/not-a-uuid", nil, http.StatusNotFound},
		{"missing event id", http.MethodPost, "/api/checkout/sessions", map[string]string{}, http.StatusBadRequest},
		{"unknown field", http.MethodPut, "/api/checkout/sessions/" + id + "/selection", map[string]any{"tier": "ga"}, http.StatusBadRequest},
		{"unknown booking", http.MethodGet, "/api/bookings/RW-NOPE", nil, http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/checkout/sessions/" + id, nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestHandler_CallbackRejectsUnknownStatus(t *testing.T) {
	_, r := setupRouter(t, 100)
	id := startSession(t, r)

	w := callback(t, r, callbackSecret, map[string]string{"session_id": id, "confirmation_id": "x", "status": "done"})

	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestHandler_CallbackReportsFieldsByJSONName(t *testing.T) {
	_, r := setupRouter(t, 100)

	w := callback(t, r, callbackSecret, map[string]string{"status": "succeeded"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	require.Len(t, resp.Fields, 2)
	assert.Equal(t, "session_id", resp.Fields[0].Field)
	assert.Equal(t, "confirmation_id", resp.Fields[1].Field)
}

func TestHandler_Health(t *testing.T) {
	_, r := setupRouter(t, 100)

	w := do(t, r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
