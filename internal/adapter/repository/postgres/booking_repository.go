package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	uniqueViolation        = "23505"
	paymentTokenConstraint = "bookings_payment_token_key"
)

type BookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Persist consumes inventory for every item, in tier id order, and writes the
// booking header and items in one transaction. A payment token that was
// already booked returns the stored booking with domain.ErrAlreadyCommitted.
func (r *BookingRepository) Persist(ctx context.Context, draft *domain.BookingDraft) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	existing, err := getBooking(ctx, tx, "payment_token", draft.PaymentToken)
	if err == nil {
		return existing, domain.ErrAlreadyCommitted
	}

	if !errors.Is(err, domain.ErrBookingNotFound) {
		return nil, err
	}

	items := append([]domain.BookingItem(nil), draft.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].TierID < items[j].TierID })

	for _, item := range items {
		if err := consumeInventory(ctx, tx, draft.EventID, item.TierID, item.Quantity); err != nil {
			return nil, err
		}
	}

	queryHeader := `
	INSERT INTO bookings (id, reference, event_id, payment_token, attendee_name, attendee_email, attendee_phone,
		special_requests, currency, subtotal, processing_fee, total_amount, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = tx.ExecContext(ctx, queryHeader,
		draft.ID,
		draft.Reference,
		draft.EventID,
		draft.PaymentToken,
		draft.Attendee.Name,
		draft.Attendee.Email,
		draft.Attendee.Phone,
		draft.Attendee.SpecialRequests,
		draft.Currency,
		draft.Subtotal,
		draft.ProcessingFee,
		draft.TotalAmount,
		draft.Status,
		draft.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, paymentTokenConstraint) {
			_ = tx.Rollback()
			return r.committedByOther(ctx, draft.PaymentToken)
		}

		return nil, fmt.Errorf("failed to insert booking header: %w", err)
	}

	queryItem := `
	INSERT INTO booking_items (id, booking_id, tier_id, tier_name, quantity, unit_price, line_total)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	stmt, err := tx.PrepareContext(ctx, queryItem)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare item statement: %w", err)
	}

	defer stmt.Close()

	for _, item := range items {
		_, err := stmt.ExecContext(ctx, item.ID, draft.ID, item.TierID, item.TierName, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to insert booking item tier %s: %w", item.TierID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking := *draft
	booking.Items = items

	return &booking, nil
}

// committedByOther resolves a lost race on the payment token to the booking
// the winning transaction wrote.
func (r *BookingRepository) committedByOther(ctx context.Context, token string) (*domain.Booking, error) {
	existing, err := getBooking(ctx, r.db, "payment_token", token)
	if err != nil {
		return nil, fmt.Errorf("read booking after duplicate token: %w", err)
	}

	return existing, domain.ErrAlreadyCommitted
}

func (r *BookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	return getBooking(ctx, r.db, "reference", reference)
}

func (r *BookingRepository) GetByPaymentToken(ctx context.Context, token string) (*domain.Booking, error) {
	return getBooking(ctx, r.db, "payment_token", token)
}

// getBooking loads a booking and its items. column is always a constant from
// this package, never user input.
func getBooking(ctx context.Context, q queryer, column, value string) (*domain.Booking, error) {
	query := fmt.Sprintf(`
	SELECT id, reference, event_id, payment_token, attendee_name, attendee_email, attendee_phone,
		special_requests, currency, subtotal, processing_fee, total_amount, status, created_at
	FROM bookings
	WHERE %s = $1
	`, column)

	var b domain.Booking
	err := q.QueryRowContext(ctx, query, value).Scan(
		&b.ID,
		&b.Reference,
		&b.EventID,
		&b.PaymentToken,
		&b.Attendee.Name,
		&b.Attendee.Email,
		&b.Attendee.Phone,
		&b.Attendee.SpecialRequests,
		&b.Currency,
		&b.Subtotal,
		&b.ProcessingFee,
		&b.TotalAmount,
		&b.Status,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}

		return nil, fmt.Errorf("query booking: %w", err)
	}

	items, err := getItems(ctx, q, b.ID)
	if err != nil {
		return nil, err
	}
	b.Items = items

	return &b, nil
}

func getItems(ctx context.Context, q queryer, bookingID uuid.UUID) ([]domain.BookingItem, error) {
	query := `
	SELECT id, booking_id, tier_id, tier_name, quantity, unit_price, line_total
	FROM booking_items
	WHERE booking_id = $1
	ORDER BY tier_id
	`

	rows, err := q.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("query booking items: %w", err)
	}

	defer rows.Close()

	var items []domain.BookingItem
	for rows.Next() {
		var it domain.BookingItem
		if err := rows.Scan(&it.ID, &it.BookingID, &it.TierID, &it.TierName, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("scan booking item: %w", err)
		}

		items = append(items, it)
	}

	return items, rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}
