package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/model"
)

// GetTicketRate returns the ticket rate for the given rate type, or
// (nil, nil) when none is configured.
func (s *Store) GetTicketRate(ctx context.Context, rateType string) (*model.TicketRate, error) {
	const q = `SELECT rate_type, price, currency FROM ticket_rates WHERE rate_type = ?`
	var t model.TicketRate
	err := s.db.QueryRowContext(ctx, q, rateType).Scan(&t.RateType, &t.Price, &t.Currency)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("querying ticket rate %q: %w", rateType, err)
	}
	return &t, nil
}

// SetTicketRate inserts or replaces the rate for a rate type.
func (s *Store) SetTicketRate(ctx context.Context, t *model.TicketRate) error {
	const q = `
		INSERT INTO ticket_rates (rate_type, price, currency)
		VALUES (?, ?, ?)
		ON CONFLICT(rate_type) DO UPDATE SET
		    price    = excluded.price,
		    currency = excluded.currency`
	if _, err := s.db.ExecContext(ctx, q, t.RateType, t.Price, t.Currency); err != nil {
		return fmt.Errorf("setting ticket rate %q: %w", t.RateType, err)
	}
	return nil
}
