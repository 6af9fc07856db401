package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BrandonGoding/squaresync/internal/catalog"
	"github.com/BrandonGoding/squaresync/internal/model"
	"github.com/BrandonGoding/squaresync/internal/pricing"
	"github.com/BrandonGoding/squaresync/internal/square"
)

// RateResolver picks the admission price for a screening.
// Implemented by [pricing.Resolver].
type RateResolver interface {
	RateFor(ctx context.Context, showtime *model.Showtime) (*model.TicketRate, error)
}

// bookingSource syncs confirmed, currently running film bookings to remote
// ITEM objects with one ITEM_VARIATION per screening, priced through the
// rate resolver.
type bookingSource struct {
	store EntityStore
	rates RateResolver
	log   *slog.Logger
	now   func() time.Time
}

// NewBookingSource creates the Source for film bookings and their showtimes.
func NewBookingSource(store EntityStore, rates RateResolver, logger *slog.Logger) Source {
	return &bookingSource{store: store, rates: rates, log: logger, now: time.Now}
}

func (s *bookingSource) Kind() string { return "booking" }

func (s *bookingSource) List(ctx context.Context) ([]Entity, error) {
	bookings, err := s.store.ListConfirmedBookings(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	entities := make([]Entity, 0, len(bookings))
	for _, b := range bookings {
		if b.IsActive(now) {
			entities = append(entities, b)
		}
	}
	return entities, nil
}

func (s *bookingSource) RemoteID(e Entity) string {
	return e.(*model.Booking).Item.ID
}

// Build assembles the booking's item with a variation per showtime. A
// showtime without a resolvable ticket rate is left out with a warning and
// never fails the booking; a booking with no priceable showtimes has nothing
// to sell, so Build returns nil.
func (s *bookingSource) Build(ctx context.Context, e Entity) (*catalog.Object, error) {
	b := e.(*model.Booking)

	itemID := b.Item.ID
	if itemID == "" {
		itemID = catalog.NewTempID("item")
	}

	showtimes, err := s.store.ListShowtimes(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("listing showtimes: %w", err)
	}

	variations := make([]*catalog.Object, 0, len(showtimes))
	for _, st := range showtimes {
		rate, err := s.rates.RateFor(ctx, st)
		if errors.Is(err, pricing.ErrNoRate) {
			s.log.Warn("no ticket rate, omitting showtime", "key", st.Key(), "shows_at", st.ShowsAt)
			continue
		}
		if err != nil {
			return nil, err
		}
		cents, err := catalog.CentsFromDecimal(rate.Price)
		if err != nil {
			return nil, fmt.Errorf("%s rate %q: %w", rate.RateType, rate.Price, err)
		}

		varID := st.Variation.ID
		if varID == "" {
			varID = catalog.NewTempID("variation")
		}
		variations = append(variations, &catalog.Object{
			Type:                  catalog.TypeItemVariation,
			ID:                    varID,
			PresentAtAllLocations: true,
			ItemVariationData: &catalog.ItemVariationData{
				Name:        st.Label(),
				ItemID:      itemID,
				PricingType: catalog.PricingFixed,
				PriceMoney:  &catalog.Money{Amount: cents, Currency: rate.Currency},
			},
		})
	}

	if len(variations) == 0 {
		return nil, nil
	}

	return &catalog.Object{
		Type:                  catalog.TypeItem,
		ID:                    itemID,
		PresentAtAllLocations: true,
		ItemData: &catalog.ItemData{
			Name:        b.FilmTitle,
			Description: b.FilmDescription,
			Variations:  variations,
		},
	}, nil
}

func (s *bookingSource) Changed(_ Entity, desired, remote *catalog.Object) bool {
	return objectChanged(desired, remote)
}

func (s *bookingSource) SaveResult(ctx context.Context, e Entity, req *catalog.Object, res *square.UpsertResult) error {
	b := e.(*model.Booking)

	itemRef := refFor(req, res)
	if !itemRef.Exists() {
		return fmt.Errorf("%s: %w", b.Key(), errUnusableResponse)
	}

	showtimes, err := s.store.ListShowtimes(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("listing showtimes: %w", err)
	}
	for _, st := range showtimes {
		reqVar := req.FindVariation(st.Variation.ID)
		if reqVar == nil {
			reqVar = req.FindVariationByName(st.Label())
		}
		if reqVar == nil {
			// Omitted from the request (no rate); nothing to persist.
			continue
		}
		ref := variationRefFor(reqVar, res)
		if !ref.Exists() {
			return fmt.Errorf("%s: %s: %w", b.Key(), st.Key(), errUnusableResponse)
		}
		if err := s.store.UpdateShowtimeRemote(ctx, st.ID, ref); err != nil {
			return err
		}
	}

	return s.store.UpdateBookingRemote(ctx, b.ID, itemRef)
}

func (s *bookingSource) ClearRemote(ctx context.Context, e Entity) error {
	return s.store.ClearBookingRemote(ctx, e.(*model.Booking).ID)
}
