package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/model"
)

const taxRateColumns = `id, name, percentage, inclusive, active, square_id, square_version`

func scanTaxRate(s scanner) (*model.TaxRate, error) {
	var t model.TaxRate
	var inclusive, active int
	var remoteID sql.NullString
	var remoteVersion sql.NullInt64

	err := s.Scan(&t.ID, &t.Name, &t.Percentage, &inclusive, &active, &remoteID, &remoteVersion)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning tax rate row: %w", err)
	}

	t.Inclusive = inclusive != 0
	t.Active = active != 0
	t.Remote = remoteRef(remoteID, remoteVersion)
	return &t, nil
}

// ListActiveTaxRates returns all active tax rates ordered by id.
func (s *Store) ListActiveTaxRates(ctx context.Context) ([]*model.TaxRate, error) {
	q := `SELECT ` + taxRateColumns + ` FROM tax_rates WHERE active = 1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying tax rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.TaxRate
	for rows.Next() {
		t, err := scanTaxRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertTaxRate creates a tax rate row and sets its ID.
func (s *Store) InsertTaxRate(ctx context.Context, t *model.TaxRate) error {
	const q = `
		INSERT INTO tax_rates (name, percentage, inclusive, active, square_id, square_version)
		VALUES (?, ?, ?, ?, ?, ?)`
	remoteID, remoteVersion := refArgs(t.Remote)
	res, err := s.db.ExecContext(ctx, q,
		t.Name, t.Percentage, boolToInt(t.Inclusive), boolToInt(t.Active), remoteID, remoteVersion)
	if err != nil {
		return fmt.Errorf("inserting tax rate %q: %w", t.Name, err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

// UpdateTaxRateRemote stores the resolved remote id/version for a tax rate.
func (s *Store) UpdateTaxRateRemote(ctx context.Context, id int64, ref model.RemoteRef) error {
	const q = `UPDATE tax_rates SET square_id = ?, square_version = ? WHERE id = ?`
	remoteID, remoteVersion := refArgs(ref)
	res, err := s.db.ExecContext(ctx, q, remoteID, remoteVersion, id)
	if err != nil {
		return fmt.Errorf("updating tax rate remote ref id=%d: %w", id, err)
	}
	return checkOneRow(res, "updating tax rate remote ref", id)
}

// ClearTaxRateRemote drops a tax rate's remote linkage.
func (s *Store) ClearTaxRateRemote(ctx context.Context, id int64) error {
	return s.UpdateTaxRateRemote(ctx, id, model.RemoteRef{})
}
