package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/model"
)

const membershipColumns = `id, name, description, duration_months, price_cents, currency, active,
	square_item_id, square_item_version, square_variation_id, square_variation_version`

func scanMembershipType(s scanner) (*model.MembershipType, error) {
	var m model.MembershipType
	var active int
	var itemID, variationID sql.NullString
	var itemVersion, variationVersion sql.NullInt64

	err := s.Scan(
		&m.ID, &m.Name, &m.Description, &m.DurationMonths, &m.PriceCents, &m.Currency, &active,
		&itemID, &itemVersion, &variationID, &variationVersion,
	)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning membership type row: %w", err)
	}

	m.Active = active != 0
	m.Item = remoteRef(itemID, itemVersion)
	m.Variation = remoteRef(variationID, variationVersion)
	return &m, nil
}

// ListActiveMembershipTypes returns all active membership tiers ordered by id.
func (s *Store) ListActiveMembershipTypes(ctx context.Context) ([]*model.MembershipType, error) {
	q := `SELECT ` + membershipColumns + ` FROM membership_types WHERE active = 1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying membership types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.MembershipType
	for rows.Next() {
		m, err := scanMembershipType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMembershipType creates a membership tier row and sets its ID.
func (s *Store) InsertMembershipType(ctx context.Context, m *model.MembershipType) error {
	const q = `
		INSERT INTO membership_types
		    (name, description, duration_months, price_cents, currency, active,
		     square_item_id, square_item_version, square_variation_id, square_variation_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	itemID, itemVersion := refArgs(m.Item)
	variationID, variationVersion := refArgs(m.Variation)
	res, err := s.db.ExecContext(ctx, q,
		m.Name, m.Description, m.DurationMonths, m.PriceCents, m.Currency, boolToInt(m.Active),
		itemID, itemVersion, variationID, variationVersion,
	)
	if err != nil {
		return fmt.Errorf("inserting membership type %q: %w", m.Name, err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

// UpdateMembershipRemote stores both remote refs of a membership tier.
func (s *Store) UpdateMembershipRemote(ctx context.Context, id int64, item, variation model.RemoteRef) error {
	const q = `
		UPDATE membership_types
		SET square_item_id = ?, square_item_version = ?,
		    square_variation_id = ?, square_variation_version = ?
		WHERE id = ?`
	itemID, itemVersion := refArgs(item)
	variationID, variationVersion := refArgs(variation)
	res, err := s.db.ExecContext(ctx, q, itemID, itemVersion, variationID, variationVersion, id)
	if err != nil {
		return fmt.Errorf("updating membership remote refs id=%d: %w", id, err)
	}
	return checkOneRow(res, "updating membership remote refs", id)
}

// ClearMembershipRemote drops a membership tier's remote linkage.
func (s *Store) ClearMembershipRemote(ctx context.Context, id int64) error {
	return s.UpdateMembershipRemote(ctx, id, model.RemoteRef{}, model.RemoteRef{})
}
