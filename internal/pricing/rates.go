// Package pricing resolves admission prices for screenings. Matinee
// screenings get the MATINEE rate when one is configured; everything else —
// including matinees without a configured matinee rate — falls back to
// EVENING_ADMISSION.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/model"
)

// Rate types known to the resolver.
const (
	RateMatinee = "MATINEE"
	RateEvening = "EVENING_ADMISSION"
)

// ErrNoRate means no ticket rate could be resolved for a screening. The sync
// layer treats this as a warning: the showtime is omitted from its booking's
// request rather than failing the batch.
var ErrNoRate = errors.New("no ticket rate resolved")

// RateStore is the subset of the store the resolver needs.
// Implemented by [store.Store].
type RateStore interface {
	GetTicketRate(ctx context.Context, rateType string) (*model.TicketRate, error)
}

// Resolver picks the ticket rate for a screening.
type Resolver struct {
	rates RateStore
}

// NewResolver creates a Resolver backed by the given rate store.
func NewResolver(rates RateStore) *Resolver {
	return &Resolver{rates: rates}
}

// RateFor returns the ticket rate for the given showtime.
func (r *Resolver) RateFor(ctx context.Context, showtime *model.Showtime) (*model.TicketRate, error) {
	rateType := RateEvening
	if showtime.IsMatinee() {
		rateType = RateMatinee
	}

	rate, err := r.rates.GetTicketRate(ctx, rateType)
	if err != nil {
		return nil, fmt.Errorf("looking up %s rate: %w", rateType, err)
	}
	if rate == nil && rateType == RateMatinee {
		rate, err = r.rates.GetTicketRate(ctx, RateEvening)
		if err != nil {
			return nil, fmt.Errorf("looking up fallback rate: %w", err)
		}
	}
	if rate == nil {
		return nil, fmt.Errorf("%s for %s: %w", rateType, showtime.Key(), ErrNoRate)
	}
	return rate, nil
}
