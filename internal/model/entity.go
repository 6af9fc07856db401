// Package model defines the local domain records mirrored into the remote
// catalog, shared between the store, the per-kind sources, and the sync engine.
package model

import (
	"fmt"
	"time"
)

// RemoteRef links a local record (or one of its syncable attributes) to a
// remote catalog object. Version is only meaningful when ID is set; a ref with
// an ID but a nil Version means "unknown version — fetch before updating".
type RemoteRef struct {
	ID      string
	Version *int64
}

// Exists reports whether the local record has ever been created remotely.
func (r RemoteRef) Exists() bool { return r.ID != "" }

// Category is a local catalog category, mirrored 1:1 to a remote CATEGORY
// object. Inventory items reference it through the remote id.
type Category struct {
	ID          int64
	Name        string
	Description string
	Active      bool
	Remote      RemoteRef
}

// Key returns the stable sync key used in log lines and error messages.
func (c *Category) Key() string { return fmt.Sprintf("category:%d", c.ID) }

// TaxRate is a local sales-tax definition, mirrored to a remote TAX object.
// Percentage is a decimal string such as "5.5".
type TaxRate struct {
	ID         int64
	Name       string
	Percentage string
	Inclusive  bool
	Active     bool
	Remote     RemoteRef
}

func (t *TaxRate) Key() string { return fmt.Sprintf("tax:%d", t.ID) }

// InventoryItem is a sellable concession or merchandise record. A row with
// ParentID == nil is a top-level item; rows pointing at a parent are its
// variations. A top-level item with no variation rows is sold through a single
// default variation built from its own fields, tracked by the Variation ref.
type InventoryItem struct {
	ID          int64
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	IsTaxable   bool
	TaxRateID   *int64
	CategoryID  *int64
	ParentID    *int64
	Active      bool

	// Item is the remote ITEM ref (top-level rows only).
	Item RemoteRef
	// Variation is the remote ITEM_VARIATION ref — the row's own variation
	// when it has a parent, or the default variation of a leaf item.
	Variation RemoteRef
}

func (i *InventoryItem) Key() string { return fmt.Sprintf("item:%d", i.ID) }

// MembershipType is a purchasable membership tier, mirrored to a remote ITEM
// with a single fixed-price variation named after its duration.
type MembershipType struct {
	ID             int64
	Name           string
	Description    string
	DurationMonths int
	PriceCents     int64
	Currency       string
	Active         bool

	Item      RemoteRef
	Variation RemoteRef
}

func (m *MembershipType) Key() string { return fmt.Sprintf("membership:%d", m.ID) }

// VariationName returns the display name of the membership's single variation,
// e.g. "12-Month Membership".
func (m *MembershipType) VariationName() string {
	return fmt.Sprintf("%d-Month Membership", m.DurationMonths)
}

// Booking is a film engagement: a film booked for a date range, sold remotely
// as an ITEM whose variations are the individual showtimes.
type Booking struct {
	ID              int64
	FilmTitle       string
	FilmDescription string
	StartDate       time.Time
	EndDate         time.Time
	Confirmed       bool

	Item RemoteRef
}

func (b *Booking) Key() string { return fmt.Sprintf("booking:%d", b.ID) }

// IsActive reports whether the booking's date range covers the given moment.
// The comparison uses now's calendar date in its own location, so an evening
// screening on the closing date is still active regardless of the UTC offset.
func (b *Booking) IsActive(now time.Time) bool {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !day.Before(b.StartDate) && !day.After(b.EndDate)
}

// TicketRate is an admission price keyed by rate type. Price is a decimal
// string ("9.50") converted to minor units at request-build time.
type TicketRate struct {
	RateType string
	Price    string
	Currency string
}

// matineeCutoffHour is the local hour before which a screening is matinee priced.
const matineeCutoffHour = 16

// Showtime is a single screening of a booking, mirrored to a remote
// ITEM_VARIATION under the booking's item.
type Showtime struct {
	ID        int64
	BookingID int64
	ShowsAt   time.Time

	Variation RemoteRef
}

func (s *Showtime) Key() string { return fmt.Sprintf("showtime:%d", s.ID) }

// IsMatinee reports whether the screening starts before the matinee cutoff.
func (s *Showtime) IsMatinee() bool {
	return s.ShowsAt.Hour() < matineeCutoffHour
}

// Label returns the variation display name for the screening,
// e.g. "Sat Jan 17 7:00 PM".
func (s *Showtime) Label() string {
	return s.ShowsAt.Format("Mon Jan 2 3:04 PM")
}
