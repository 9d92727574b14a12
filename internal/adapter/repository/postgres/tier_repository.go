package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
)

type TierRepository struct {
	db *sql.DB
}

func NewTierRepository(db *sql.DB) *TierRepository {
	return &TierRepository{db: db}
}

func (r *TierRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.TicketTier, error) {
	query := `
	SELECT id, event_id, name, type, unit_price, currency, total_quantity, sold_quantity, status
	FROM ticket_tiers
	WHERE event_id = $1
	ORDER BY sort_order, id
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("query tiers: %w", err)
	}

	defer rows.Close()

	var tiers []domain.TicketTier
	for rows.Next() {
		var t domain.TicketTier
		if err := rows.Scan(
			&t.ID,
			&t.EventID,
			&t.Name,
			&t.Type,
			&t.UnitPrice,
			&t.Currency,
			&t.TotalQuantity,
			&t.SoldQuantity,
			&t.Status,
		); err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}

		tiers = append(tiers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tiers: %w", err)
	}

	return tiers, nil
}

// consumeInventory moves qty units of a tier from available to sold inside
// tx. The WHERE clause is the oversell guard: it only matches while the tier
// is on sale and still has qty units left.
func consumeInventory(ctx context.Context, tx *sql.Tx, eventID, tierID string, qty int) error {
	query := `
	UPDATE ticket_tiers
	SET sold_quantity = sold_quantity + $1
	WHERE id = $2 AND event_id = $3 AND status = 'on_sale' AND total_quantity - sold_quantity >= $1
	`

	result, err := tx.ExecContext(ctx, query, qty, tierID, eventID)
	if err != nil {
		return fmt.Errorf("consume tier %s: %w", tierID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 1 {
		return nil
	}

	return soldOut(ctx, tx, eventID, tierID, qty)
}

func soldOut(ctx context.Context, tx *sql.Tx, eventID, tierID string, qty int) error {
	query := `
	SELECT name, total_quantity, sold_quantity, status
	FROM ticket_tiers
	WHERE id = $1 AND event_id = $2
	`

	var t domain.TicketTier
	err := tx.QueryRowContext(ctx, query, tierID, eventID).Scan(&t.Name, &t.TotalQuantity, &t.SoldQuantity, &t.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("tier %s: %w", tierID, domain.ErrTierNotFound)
	}

	if err != nil {
		return fmt.Errorf("read tier %s: %w", tierID, err)
	}

	return &domain.SoldOutError{
		TierID:    tierID,
		TierName:  t.Name,
		Requested: qty,
		Available: t.Available(),
	}
}
