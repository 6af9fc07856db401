package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/model"
)

const inventoryColumns = `id, name, description, price_cents, currency, is_taxable,
	tax_rate_id, category_id, parent_id, active,
	square_item_id, square_item_version, square_variation_id, square_variation_version`

func scanInventoryItem(s scanner) (*model.InventoryItem, error) {
	var i model.InventoryItem
	var isTaxable, active int
	var taxRateID, categoryID, parentID sql.NullInt64
	var itemID, variationID sql.NullString
	var itemVersion, variationVersion sql.NullInt64

	err := s.Scan(
		&i.ID, &i.Name, &i.Description, &i.PriceCents, &i.Currency, &isTaxable,
		&taxRateID, &categoryID, &parentID, &active,
		&itemID, &itemVersion, &variationID, &variationVersion,
	)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning inventory item row: %w", err)
	}

	i.IsTaxable = isTaxable != 0
	i.Active = active != 0
	i.TaxRateID = idPtr(taxRateID)
	i.CategoryID = idPtr(categoryID)
	i.ParentID = idPtr(parentID)
	i.Item = remoteRef(itemID, itemVersion)
	i.Variation = remoteRef(variationID, variationVersion)
	return &i, nil
}

func (s *Store) queryInventory(ctx context.Context, q string, args ...any) ([]*model.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying inventory items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.InventoryItem
	for rows.Next() {
		i, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// ListActiveTopLevelItems returns active items without a parent, ordered by
// id. These are the rows synced as remote ITEM objects.
func (s *Store) ListActiveTopLevelItems(ctx context.Context) ([]*model.InventoryItem, error) {
	q := `SELECT ` + inventoryColumns + ` FROM inventory_items
		WHERE active = 1 AND parent_id IS NULL ORDER BY id`
	return s.queryInventory(ctx, q)
}

// ListActiveVariations returns the active child rows of a top-level item,
// ordered by id.
func (s *Store) ListActiveVariations(ctx context.Context, parentID int64) ([]*model.InventoryItem, error) {
	q := `SELECT ` + inventoryColumns + ` FROM inventory_items
		WHERE active = 1 AND parent_id = ? ORDER BY id`
	return s.queryInventory(ctx, q, parentID)
}

// InsertInventoryItem creates an inventory row and sets its ID.
func (s *Store) InsertInventoryItem(ctx context.Context, i *model.InventoryItem) error {
	const q = `
		INSERT INTO inventory_items
		    (name, description, price_cents, currency, is_taxable,
		     tax_rate_id, category_id, parent_id, active,
		     square_item_id, square_item_version, square_variation_id, square_variation_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	itemID, itemVersion := refArgs(i.Item)
	variationID, variationVersion := refArgs(i.Variation)
	res, err := s.db.ExecContext(ctx, q,
		i.Name, i.Description, i.PriceCents, i.Currency, boolToInt(i.IsTaxable),
		nullID(i.TaxRateID), nullID(i.CategoryID), nullID(i.ParentID), boolToInt(i.Active),
		itemID, itemVersion, variationID, variationVersion,
	)
	if err != nil {
		return fmt.Errorf("inserting inventory item %q: %w", i.Name, err)
	}
	i.ID, err = res.LastInsertId()
	return err
}

// UpdateInventoryItemRemote stores both remote refs of a top-level item: the
// ITEM ref and (for leaf items sold through a default variation) the
// ITEM_VARIATION ref.
func (s *Store) UpdateInventoryItemRemote(ctx context.Context, id int64, item, variation model.RemoteRef) error {
	const q = `
		UPDATE inventory_items
		SET square_item_id = ?, square_item_version = ?,
		    square_variation_id = ?, square_variation_version = ?
		WHERE id = ?`
	itemID, itemVersion := refArgs(item)
	variationID, variationVersion := refArgs(variation)
	res, err := s.db.ExecContext(ctx, q, itemID, itemVersion, variationID, variationVersion, id)
	if err != nil {
		return fmt.Errorf("updating inventory remote refs id=%d: %w", id, err)
	}
	return checkOneRow(res, "updating inventory remote refs", id)
}

// UpdateInventoryVariationRemote stores the variation ref of a child row.
func (s *Store) UpdateInventoryVariationRemote(ctx context.Context, id int64, variation model.RemoteRef) error {
	const q = `
		UPDATE inventory_items
		SET square_variation_id = ?, square_variation_version = ?
		WHERE id = ?`
	variationID, variationVersion := refArgs(variation)
	res, err := s.db.ExecContext(ctx, q, variationID, variationVersion, id)
	if err != nil {
		return fmt.Errorf("updating inventory variation ref id=%d: %w", id, err)
	}
	return checkOneRow(res, "updating inventory variation ref", id)
}

// ClearInventoryItemRemote drops all remote linkage of a top-level item and
// its child variations, forcing re-creation on the next pass.
func (s *Store) ClearInventoryItemRemote(ctx context.Context, id int64) error {
	const q = `
		UPDATE inventory_items
		SET square_item_id = NULL, square_item_version = NULL,
		    square_variation_id = NULL, square_variation_version = NULL
		WHERE id = ? OR parent_id = ?`
	if _, err := s.db.ExecContext(ctx, q, id, id); err != nil {
		return fmt.Errorf("clearing inventory remote refs id=%d: %w", id, err)
	}
	return nil
}
