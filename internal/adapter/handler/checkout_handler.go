package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/adapter/handler/dto"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/services"
	"github.com/go-playground/validator/v10"
)

const (
	maxBodyBytes = 1 << 16

	// settleTimeout bounds payment and commit work once it has started. The
	// request context is detached so a dropped connection does not abandon a
	// captured payment halfway through the booking write.
	settleTimeout = 60 * time.Second

	msgBookingFailed = "booking failed, please retry"
	msgInternal      = "internal server error"
)

type SessionManager interface {
	Tiers(ctx context.Context, eventID string) ([]domain.TicketTier, error)
	Start(ctx context.Context, eventID string) (*services.CheckoutSession, error)
	Get(id string) (*services.CheckoutSession, error)
}

type BookingReader interface {
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
}

type CheckoutHandler struct {
	sessions       SessionManager
	bookings       BookingReader
	callbackSecret string
	validate       *validator.Validate
	log            *slog.Logger
}

// NewCheckoutHandler wires the HTTP surface. Payment callbacks must be signed
// with callbackSecret; an empty secret refuses them all.
func NewCheckoutHandler(sessions SessionManager, bookings BookingReader, callbackSecret string, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		sessions:       sessions,
		bookings:       bookings,
		callbackSecret: callbackSecret,
		validate:       newValidator(),
		log:            log,
	}
}

// Catalog

func (h *CheckoutHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.sessions.Tiers(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.handleError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTierResponses(tiers))
}

// Sessions

func (h *CheckoutHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSessionRequest
	if !h.bind(w, r, &req) {
		return
	}

	s, err := h.sessions.Start(r.Context(), req.EventID)
	if err != nil {
		h.handleError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToSessionResponse(s.View()))
}

func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSessionResponse(s.View()))
}

func (h *CheckoutHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.SetQuantityRequest
	if !h.bind(w, r, &req) {
		return
	}

	view, err := s.SetQuantity(req.TierID, req.Quantity)
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) Proceed(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	view, err := s.Proceed()
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	view, err := s.Back()
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) SubmitDetails(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.DetailsRequest
	if !h.bind(w, r, &req) {
		return
	}

	view, err := s.SubmitDetails(domain.AttendeeInfo{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		SpecialRequests: req.SpecialRequests,
	})
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	view, err := s.CancelPayment()
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req dto.PayRequest
	if !h.bind(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), settleTimeout)
	defer cancel()

	view, err := s.Pay(ctx, services.PaymentInput{Method: req.Method, Token: req.Token})
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), settleTimeout)
	defer cancel()

	view, err := s.Reset(ctx)
	h.respond(w, r, view, err)
}

// PaymentCallback receives asynchronous results from the payment provider.
// The body must carry a valid signature. Replayed callbacks for a confirmed
// session answer with the same booking.
func (h *CheckoutHandler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	if !validCallbackSignature(h.callbackSecret, body, r.Header.Get(SignatureHeader)) {
		h.log.WarnContext(r.Context(), "payment callback rejected: bad signature",
			"remote_addr", r.RemoteAddr,
		)
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid callback signature"})
		return
	}

	var req dto.PaymentCallbackRequest
	if !h.decode(w, bytes.NewReader(body), &req) {
		return
	}

	s, err := h.sessions.Get(req.SessionID)
	if err != nil {
		h.handleError(w, r, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), settleTimeout)
	defer cancel()

	view, err := s.CompletePayment(ctx, domain.PaymentResult{
		ConfirmationID: req.ConfirmationID,
		Outcome:        domain.PaymentOutcome(req.Status),
		Reason:         req.Reason,
	})
	h.respond(w, r, view, err)
}

// Bookings

func (h *CheckoutHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	reference := strings.ToUpper(strings.TrimSpace(r.PathValue("reference")))

	booking, err := h.bookings.GetByReference(r.Context(), reference)
	if err != nil {
		h.handleError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (*services.CheckoutSession, bool) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		h.handleError(w, r, err, nil)
		return nil, false
	}

	return s, true
}

func (h *CheckoutHandler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decode(w, http.MaxBytesReader(w, r.Body, maxBodyBytes), dst)
}

func (h *CheckoutHandler) decode(w http.ResponseWriter, body io.Reader, dst any) bool {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	// An empty body is fine; validation decides whether fields were needed.
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid json body"})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:  "invalid request",
			Fields: requestFieldErrors(err),
		})
		return false
	}

	return true
}

func (h *CheckoutHandler) respond(w http.ResponseWriter, r *http.Request, view services.SessionView, err error) {
	if err != nil {
		h.handleError(w, r, err, &view)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSessionResponse(view))
}

// handleError maps domain errors to statuses. When the error came out of a
// session transition the current session is attached so the client can
// re-render without another round trip.
func (h *CheckoutHandler) handleError(w http.ResponseWriter, r *http.Request, err error, view *services.SessionView) {
	resp := dto.ErrorResponse{Error: err.Error()}
	if view != nil {
		s := dto.ToSessionResponse(*view)
		resp.Session = &s
	}

	var fields domain.FieldErrors
	var soldOut *domain.SoldOutError

	switch {
	case errors.As(err, &fields):
		resp.Fields = fields
		writeJSON(w, http.StatusUnprocessableEntity, resp)

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrMixedCurrency):
		writeJSON(w, http.StatusUnprocessableEntity, resp)

	case errors.As(err, &soldOut):
		resp.TierID = soldOut.TierID
		writeJSON(w, http.StatusConflict, resp)

	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrTransitionInFlight),
		errors.Is(err, domain.ErrCommitInProgress):
		writeJSON(w, http.StatusConflict, resp)

	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrTierNotFound):
		writeJSON(w, http.StatusNotFound, resp)

	case errors.Is(err, domain.ErrPaymentFailed),
		errors.Is(err, domain.ErrPaymentCancelled):
		writeJSON(w, http.StatusPaymentRequired, resp)

	default:
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)

		resp.Error = msgInternal
		if view != nil {
			resp.Error = msgBookingFailed
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

func requestFieldErrors(err error) []domain.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, domain.FieldError{
			Field:   fe.Field(),
			Message: fe.Field() + " failed " + fe.Tag() + " check",
		})
	}

	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
