package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/model"
)

const categoryColumns = `id, name, description, active, square_id, square_version`

func scanCategory(s scanner) (*model.Category, error) {
	var c model.Category
	var active int
	var remoteID sql.NullString
	var remoteVersion sql.NullInt64

	err := s.Scan(&c.ID, &c.Name, &c.Description, &active, &remoteID, &remoteVersion)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning category row: %w", err)
	}

	c.Active = active != 0
	c.Remote = remoteRef(remoteID, remoteVersion)
	return &c, nil
}

// ListActiveCategories returns all active categories ordered by id, the
// stable iteration order the reconciler relies on.
func (s *Store) ListActiveCategories(ctx context.Context) ([]*model.Category, error) {
	q := `SELECT ` + categoryColumns + ` FROM categories WHERE active = 1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategoryByName returns the category with the given name, or (nil, nil).
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	q := `SELECT ` + categoryColumns + ` FROM categories WHERE name = ?`
	return scanCategory(s.db.QueryRowContext(ctx, q, name))
}

// InsertCategory creates a category row and sets its ID.
func (s *Store) InsertCategory(ctx context.Context, c *model.Category) error {
	const q = `
		INSERT INTO categories (name, description, active, square_id, square_version)
		VALUES (?, ?, ?, ?, ?)`
	remoteID, remoteVersion := refArgs(c.Remote)
	res, err := s.db.ExecContext(ctx, q, c.Name, c.Description, boolToInt(c.Active), remoteID, remoteVersion)
	if err != nil {
		return fmt.Errorf("inserting category %q: %w", c.Name, err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// UpdateCategoryRemote stores the resolved remote id/version for a category.
func (s *Store) UpdateCategoryRemote(ctx context.Context, id int64, ref model.RemoteRef) error {
	const q = `UPDATE categories SET square_id = ?, square_version = ? WHERE id = ?`
	remoteID, remoteVersion := refArgs(ref)
	res, err := s.db.ExecContext(ctx, q, remoteID, remoteVersion, id)
	if err != nil {
		return fmt.Errorf("updating category remote ref id=%d: %w", id, err)
	}
	return checkOneRow(res, "updating category remote ref", id)
}

// ClearCategoryRemote drops a category's remote linkage so the next sync pass
// recreates it.
func (s *Store) ClearCategoryRemote(ctx context.Context, id int64) error {
	return s.UpdateCategoryRemote(ctx, id, model.RemoteRef{})
}
