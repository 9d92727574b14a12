package mongorepo

import (
	"fmt"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Money is stored as decimal strings so amounts round-trip exactly.

type eventDocument struct {
	ID    string         `bson:"_id"`
	Name  string         `bson:"name,omitempty"`
	Tiers []tierDocument `bson:"ticket_tiers"`
}

type tierDocument struct {
	ID            string `bson:"id"`
	Name          string `bson:"name"`
	Type          string `bson:"type"`
	UnitPrice     string `bson:"unit_price"`
	Currency      string `bson:"currency"`
	TotalQuantity int    `bson:"total_quantity"`
	SoldQuantity  int    `bson:"sold_quantity"`
	Status        string `bson:"status"`
	SortOrder     int    `bson:"sort_order"`
}

func (d tierDocument) toDomain(eventID string) (domain.TicketTier, error) {
	price, err := decimal.NewFromString(d.UnitPrice)
	if err != nil {
		return domain.TicketTier{}, fmt.Errorf("tier %s unit_price: %w", d.ID, err)
	}

	return domain.TicketTier{
		ID:            d.ID,
		EventID:       eventID,
		Name:          d.Name,
		Type:          d.Type,
		UnitPrice:     price,
		Currency:      d.Currency,
		TotalQuantity: d.TotalQuantity,
		SoldQuantity:  d.SoldQuantity,
		Status:        domain.TierStatus(d.Status),
	}, nil
}

type attendeeDocument struct {
	Name            string `bson:"name"`
	Email           string `bson:"email"`
	Phone           string `bson:"phone,omitempty"`
	SpecialRequests string `bson:"special_requests,omitempty"`
}

type itemDocument struct {
	ID        string `bson:"id"`
	TierID    string `bson:"tier_id"`
	TierName  string `bson:"tier_name"`
	Quantity  int    `bson:"quantity"`
	UnitPrice string `bson:"unit_price"`
	LineTotal string `bson:"line_total"`
}

type bookingDocument struct {
	ID            string           `bson:"_id"`
	Reference     string           `bson:"reference"`
	EventID       string           `bson:"event_id"`
	PaymentToken  string           `bson:"payment_token"`
	Attendee      attendeeDocument `bson:"attendee"`
	Currency      string           `bson:"currency"`
	Subtotal      string           `bson:"subtotal"`
	ProcessingFee string           `bson:"processing_fee"`
	TotalAmount   string           `bson:"total_amount"`
	Status        string           `bson:"status"`
	CreatedAt     time.Time        `bson:"created_at"`
	Items         []itemDocument   `bson:"items"`
}

func newBookingDocument(b *domain.Booking) bookingDocument {
	items := make([]itemDocument, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, itemDocument{
			ID:        it.ID.String(),
			TierID:    it.TierID,
			TierName:  it.TierName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.String(),
			LineTotal: it.LineTotal.String(),
		})
	}

	return bookingDocument{
		ID:           b.ID.String(),
		Reference:    b.Reference,
		EventID:      b.EventID,
		PaymentToken: b.PaymentToken,
		Attendee: attendeeDocument{
			Name:            b.Attendee.Name,
			Email:           b.Attendee.Email,
			Phone:           b.Attendee.Phone,
			SpecialRequests: b.Attendee.SpecialRequests,
		},
		Currency:      b.Currency,
		Subtotal:      b.Subtotal.String(),
		ProcessingFee: b.ProcessingFee.String(),
		TotalAmount:   b.TotalAmount.String(),
		Status:        string(b.Status),
		CreatedAt:     b.CreatedAt.UTC(),
		Items:         items,
	}
}

func (d bookingDocument) toDomain() (*domain.Booking, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("booking id %q: %w", d.ID, err)
	}

	amounts := make([]decimal.Decimal, 3)
	for i, s := range []string{d.Subtotal, d.ProcessingFee, d.TotalAmount} {
		if amounts[i], err = decimal.NewFromString(s); err != nil {
			return nil, fmt.Errorf("booking %s amount: %w", d.Reference, err)
		}
	}

	b := &domain.Booking{
		ID:           id,
		Reference:    d.Reference,
		EventID:      d.EventID,
		PaymentToken: d.PaymentToken,
		Attendee: domain.AttendeeInfo{
			Name:            d.Attendee.Name,
			Email:           d.Attendee.Email,
			Phone:           d.Attendee.Phone,
			SpecialRequests: d.Attendee.SpecialRequests,
		},
		Currency:      d.Currency,
		Subtotal:      amounts[0],
		ProcessingFee: amounts[1],
		TotalAmount:   amounts[2],
		Status:        domain.BookingStatus(d.Status),
		CreatedAt:     d.CreatedAt,
		Items:         make([]domain.BookingItem, 0, len(d.Items)),
	}

	for _, it := range d.Items {
		itemID, err := uuid.Parse(it.ID)
		if err != nil {
			return nil, fmt.Errorf("booking item id %q: %w", it.ID, err)
		}

		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("booking item %s price: %w", it.TierID, err)
		}

		lineTotal, err := decimal.NewFromString(it.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("booking item %s total: %w", it.TierID, err)
		}

		b.Items = append(b.Items, domain.BookingItem{
			ID:        itemID,
			BookingID: id,
			TierID:    it.TierID,
			TierName:  it.TierName,
			Quantity:  it.Quantity,
			UnitPrice: price,
			LineTotal: lineTotal,
		})
	}

	return b, nil
}
