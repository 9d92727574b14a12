package dto

import (
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/services"
)

// Amounts leave the API as fixed two-decimal strings.

type TierResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	UnitPrice string `json:"unit_price"`
	Currency  string `json:"currency"`
	Available int    `json:"available"`
	Status    string `json:"status"`
}

type PricedLineResponse struct {
	TierID    string `json:"tier_id"`
	TierName  string `json:"tier_name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type PricingResponse struct {
	Currency      string               `json:"currency"`
	Lines         []PricedLineResponse `json:"lines"`
	Subtotal      string               `json:"subtotal"`
	ProcessingFee string               `json:"processing_fee"`
	Total         string               `json:"total"`
}

type AttendeeResponse struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

type SessionResponse struct {
	ID                   string           `json:"id"`
	EventID              string           `json:"event_id"`
	State                string           `json:"state"`
	Selection            map[string]int   `json:"selection"`
	Pricing              PricingResponse  `json:"pricing"`
	Attendee             AttendeeResponse `json:"attendee"`
	Message              string           `json:"message,omitempty"`
	Reference            string           `json:"reference,omitempty"`
	AwaitingConfirmation bool             `json:"awaiting_confirmation"`
	Tiers                []TierResponse   `json:"tiers"`
	MaxPerPerson         int              `json:"max_per_person"`
	UpdatedAt            string           `json:"updated_at"`
}

type BookingItemResponse struct {
	TierID    string `json:"tier_id"`
	TierName  string `json:"tier_name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// BookingResponse omits the payment token.
type BookingResponse struct {
	Reference     string                `json:"reference"`
	EventID       string                `json:"event_id"`
	Status        string                `json:"status"`
	Attendee      AttendeeResponse      `json:"attendee"`
	Currency      string                `json:"currency"`
	Subtotal      string                `json:"subtotal"`
	ProcessingFee string                `json:"processing_fee"`
	TotalAmount   string                `json:"total_amount"`
	Items         []BookingItemResponse `json:"items"`
	CreatedAt     string                `json:"created_at"`
}

type ErrorResponse struct {
	Error   string              `json:"error"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
	TierID  string              `json:"tier_id,omitempty"`
	Session *SessionResponse    `json:"session,omitempty"`
}

func ToTierResponses(tiers []domain.TicketTier) []TierResponse {
	out := make([]TierResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, TierResponse{
			ID:        t.ID,
			Name:      t.Name,
			Type:      t.Type,
			UnitPrice: domain.FormatMoney(t.UnitPrice),
			Currency:  t.Currency,
			Available: t.Available(),
			Status:    string(t.Status),
		})
	}

	return out
}

func ToPricingResponse(p domain.PricingBreakdown) PricingResponse {
	lines := make([]PricedLineResponse, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, PricedLineResponse{
			TierID:    l.TierID,
			TierName:  l.TierName,
			Quantity:  l.Quantity,
			UnitPrice: domain.FormatMoney(l.UnitPrice),
			LineTotal: domain.FormatMoney(l.LineTotal),
		})
	}

	return PricingResponse{
		Currency:      p.Currency,
		Lines:         lines,
		Subtotal:      domain.FormatMoney(p.Subtotal),
		ProcessingFee: domain.FormatMoney(p.ProcessingFee),
		Total:         domain.FormatMoney(p.Total),
	}
}

func toAttendeeResponse(a domain.AttendeeInfo) AttendeeResponse {
	return AttendeeResponse{
		Name:            a.Name,
		Email:           a.Email,
		Phone:           a.Phone,
		SpecialRequests: a.SpecialRequests,
	}
}

func ToSessionResponse(v services.SessionView) SessionResponse {
	selection := make(map[string]int, len(v.Selection))
	for id, q := range v.Selection {
		selection[id] = q
	}

	return SessionResponse{
		ID:                   v.ID,
		EventID:              v.EventID,
		State:                string(v.State),
		Selection:            selection,
		Pricing:              ToPricingResponse(v.Pricing),
		Attendee:             toAttendeeResponse(v.Attendee),
		Message:              v.Message,
		Reference:            v.Reference,
		AwaitingConfirmation: v.AwaitingConfirmation,
		Tiers:                ToTierResponses(v.Tiers),
		MaxPerPerson:         v.MaxPerPerson,
		UpdatedAt:            v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func ToBookingResponse(b *domain.Booking) BookingResponse {
	items := make([]BookingItemResponse, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, BookingItemResponse{
			TierID:    it.TierID,
			TierName:  it.TierName,
			Quantity:  it.Quantity,
			UnitPrice: domain.FormatMoney(it.UnitPrice),
			LineTotal: domain.FormatMoney(it.LineTotal),
		})
	}

	return BookingResponse{
		Reference:     b.Reference,
		EventID:       b.EventID,
		Status:        string(b.Status),
		Attendee:      toAttendeeResponse(b.Attendee),
		Currency:      b.Currency,
		Subtotal:      domain.FormatMoney(b.Subtotal),
		ProcessingFee: domain.FormatMoney(b.ProcessingFee),
		TotalAmount:   domain.FormatMoney(b.TotalAmount),
		Items:         items,
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
}
