package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingFailed    BookingStatus = "failed"
)

type Booking struct {
	ID            uuid.UUID       `json:"id"`
	Reference     string          `json:"reference"`
	EventID       string          `json:"event_id"`
	PaymentToken  string          `json:"-"`
	Attendee      AttendeeInfo    `json:"attendee"`
	Currency      string          `json:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        BookingStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []BookingItem   `json:"items"`
}

type BookingItem struct {
	ID        uuid.UUID       `json:"id"`
	BookingID uuid.UUID       `json:"booking_id"`
	TierID    string          `json:"tier_id"`
	TierName  string          `json:"tier_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func (b *Booking) Quantity() int {
	total := 0
	for _, it := range b.Items {
		total += it.Quantity
	}

	return total
}

// BookingDraft is the booking as the repository receives it: ids and amounts
// are final, inventory has not been checked yet.
type BookingDraft = Booking

const referenceAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// NewReference returns a short shopper-facing code such as RW-7K3QX9AB.
// Uniqueness is enforced by storage.
func NewReference() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "RW-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}

	var sb strings.Builder
	sb.WriteString("RW-")
	for _, b := range buf {
		sb.WriteByte(referenceAlphabet[int(b)%len(referenceAlphabet)])
	}

	return sb.String()
}
