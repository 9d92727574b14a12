package handler

import "net/http"

type Middleware func(http.Handler) http.Handler

// NewRouter wires the checkout API. metrics may be nil when the Prometheus
// endpoint is disabled. Middlewares run in the order given.
func NewRouter(h *CheckoutHandler, metrics http.Handler, mw ...Middleware) http.Handler {
	mux := http.NewServeMux()

	// Catalog
	mux.HandleFunc("GET /api/events/{eventID}/tiers", h.ListTiers)

	// Checkout sessions
	mux.HandleFunc("POST /api/checkout/sessions", h.StartSession)
	mux.HandleFunc("GET /api/checkout/sessions/{id}", h.GetSession)
	mux.HandleFunc("PUT /api/checkout/sessions/{id}/selection", h.SetQuantity)
	mux.HandleFunc("POST /api/checkout/sessions/{id}/proceed", h.Proceed)
	mux.HandleFunc("POST /api/checkout/sessions/{id}/back", h.Back)
	mux.HandleFunc("POST /api/checkout/sessions/{id}/details", h.SubmitDetails)
	mux.HandleFunc("POST /api/checkout/sessions/{id}/cancel", h.CancelPayment)
	mux.HandleFunc("POST /api/checkout/sessions/{id}/pay", h.Pay)
	mux.HandleFunc("POST /api/checkout/sessions/{id}/reset", h.Reset)

	// Payments and bookings
	mux.HandleFunc("POST /api/payments/callback", h.PaymentCallback)
	mux.HandleFunc("GET /api/bookings/{reference}", h.GetBooking)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	var handler http.Handler = mux
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}

	return handler
}
