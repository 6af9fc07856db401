package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/model"
)

const bookingColumns = `id, film_title, film_description, start_date, end_date, confirmed,
	square_item_id, square_item_version`

func scanBooking(s scanner) (*model.Booking, error) {
	var b model.Booking
	var startDate, endDate string
	var confirmed int
	var itemID sql.NullString
	var itemVersion sql.NullInt64

	err := s.Scan(&b.ID, &b.FilmTitle, &b.FilmDescription, &startDate, &endDate, &confirmed,
		&itemID, &itemVersion)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning booking row: %w", err)
	}

	b.StartDate = parseDate(startDate)
	b.EndDate = parseDate(endDate)
	b.Confirmed = confirmed != 0
	b.Item = remoteRef(itemID, itemVersion)
	return &b, nil
}

// ListConfirmedBookings returns confirmed bookings ordered by id. Only
// confirmed engagements are mirrored to the remote catalog.
func (s *Store) ListConfirmedBookings(ctx context.Context) ([]*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE confirmed = 1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertBooking creates a booking row and sets its ID.
func (s *Store) InsertBooking(ctx context.Context, b *model.Booking) error {
	const q = `
		INSERT INTO bookings
		    (film_title, film_description, start_date, end_date, confirmed,
		     square_item_id, square_item_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	itemID, itemVersion := refArgs(b.Item)
	res, err := s.db.ExecContext(ctx, q,
		b.FilmTitle, b.FilmDescription, formatDate(b.StartDate), formatDate(b.EndDate),
		boolToInt(b.Confirmed), itemID, itemVersion,
	)
	if err != nil {
		return fmt.Errorf("inserting booking %q: %w", b.FilmTitle, err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

// UpdateBookingRemote stores the resolved remote item ref for a booking.
func (s *Store) UpdateBookingRemote(ctx context.Context, id int64, ref model.RemoteRef) error {
	const q = `UPDATE bookings SET square_item_id = ?, square_item_version = ? WHERE id = ?`
	itemID, itemVersion := refArgs(ref)
	res, err := s.db.ExecContext(ctx, q, itemID, itemVersion, id)
	if err != nil {
		return fmt.Errorf("updating booking remote ref id=%d: %w", id, err)
	}
	return checkOneRow(res, "updating booking remote ref", id)
}

// ClearBookingRemote drops a booking's remote linkage together with the
// variation refs of all its showtimes, forcing a full re-create next pass.
func (s *Store) ClearBookingRemote(ctx context.Context, id int64) error {
	if err := s.UpdateBookingRemote(ctx, id, model.RemoteRef{}); err != nil {
		return err
	}
	const q = `
		UPDATE showtimes
		SET square_variation_id = NULL, square_variation_version = NULL
		WHERE booking_id = ?`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("clearing showtime refs for booking id=%d: %w", id, err)
	}
	return nil
}

// --- showtimes ---------------------------------------------------------------

const showtimeColumns = `id, booking_id, shows_at, square_variation_id, square_variation_version`

func scanShowtime(s scanner) (*model.Showtime, error) {
	var st model.Showtime
	var showsAt string
	var variationID sql.NullString
	var variationVersion sql.NullInt64

	err := s.Scan(&st.ID, &st.BookingID, &showsAt, &variationID, &variationVersion)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning showtime row: %w", err)
	}

	st.ShowsAt = parseTime(showsAt)
	st.Variation = remoteRef(variationID, variationVersion)
	return &st, nil
}

// ListShowtimes returns a booking's showtimes ordered by screening time.
func (s *Store) ListShowtimes(ctx context.Context, bookingID int64) ([]*model.Showtime, error) {
	q := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE booking_id = ? ORDER BY datetime(shows_at)`
	rows, err := s.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, fmt.Errorf("querying showtimes for booking %d: %w", bookingID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Showtime
	for rows.Next() {
		st, err := scanShowtime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// InsertShowtime creates a showtime row and sets its ID.
func (s *Store) InsertShowtime(ctx context.Context, st *model.Showtime) error {
	const q = `
		INSERT INTO showtimes (booking_id, shows_at, square_variation_id, square_variation_version)
		VALUES (?, ?, ?, ?)`
	variationID, variationVersion := refArgs(st.Variation)
	res, err := s.db.ExecContext(ctx, q, st.BookingID, formatTime(st.ShowsAt), variationID, variationVersion)
	if err != nil {
		return fmt.Errorf("inserting showtime for booking %d: %w", st.BookingID, err)
	}
	st.ID, err = res.LastInsertId()
	return err
}

// UpdateShowtimeRemote stores the resolved variation ref for a showtime.
func (s *Store) UpdateShowtimeRemote(ctx context.Context, id int64, ref model.RemoteRef) error {
	const q = `UPDATE showtimes SET square_variation_id = ?, square_variation_version = ? WHERE id = ?`
	variationID, variationVersion := refArgs(ref)
	res, err := s.db.ExecContext(ctx, q, variationID, variationVersion, id)
	if err != nil {
		return fmt.Errorf("updating showtime remote ref id=%d: %w", id, err)
	}
	return checkOneRow(res, "updating showtime remote ref", id)
}
