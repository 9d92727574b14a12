package dto

type StartSessionRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

// SetQuantityRequest is applied as-is; out of range quantities are clamped by
// the session rather than rejected.
type SetQuantityRequest struct {
	TierID   string `json:"tier_id" validate:"required"`
	Quantity int    `json:"quantity"`
}

type DetailsRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"special_requests"`
}

type PayRequest struct {
	Method string `json:"method" validate:"omitempty,max=32"`
	Token  string `json:"token"  validate:"max=512"`
}

type PaymentCallbackRequest struct {
	SessionID      string `json:"session_id"      validate:"required,uuid"`
	ConfirmationID string `json:"confirmation_id" validate:"required"`
	Status         string `json:"status"          validate:"required,oneof=succeeded failed cancelled pending"`
	Reason         string `json:"reason"`
}
