package sync

import (
	"context"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/catalog"
	"github.com/BrandonGoding/squaresync/internal/model"
	"github.com/BrandonGoding/squaresync/internal/square"
)

// taxSource syncs local tax rates to remote TAX objects.
type taxSource struct {
	store EntityStore
}

// NewTaxSource creates the Source for sales-tax rates.
func NewTaxSource(store EntityStore) Source {
	return &taxSource{store: store}
}

func (s *taxSource) Kind() string { return "tax" }

func (s *taxSource) List(ctx context.Context) ([]Entity, error) {
	rates, err := s.store.ListActiveTaxRates(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]Entity, len(rates))
	for i, t := range rates {
		entities[i] = t
	}
	return entities, nil
}

func (s *taxSource) RemoteID(e Entity) string {
	return e.(*model.TaxRate).Remote.ID
}

func (s *taxSource) Build(_ context.Context, e Entity) (*catalog.Object, error) {
	t := e.(*model.TaxRate)
	id := t.Remote.ID
	if id == "" {
		id = catalog.NewTempID("tax")
	}
	inclusion := catalog.TaxAdditive
	if t.Inclusive {
		inclusion = catalog.TaxInclusive
	}
	return &catalog.Object{
		Type:                  catalog.TypeTax,
		ID:                    id,
		PresentAtAllLocations: true,
		TaxData: &catalog.TaxData{
			Name:             t.Name,
			Percentage:       t.Percentage,
			InclusionType:    inclusion,
			CalculationPhase: "TAX_SUBTOTAL_PHASE",
			Enabled:          true,
		},
	}, nil
}

func (s *taxSource) Changed(_ Entity, desired, remote *catalog.Object) bool {
	return objectChanged(desired, remote)
}

func (s *taxSource) SaveResult(ctx context.Context, e Entity, req *catalog.Object, res *square.UpsertResult) error {
	t := e.(*model.TaxRate)
	ref := refFor(req, res)
	if !ref.Exists() {
		return fmt.Errorf("%s: %w", t.Key(), errUnusableResponse)
	}
	return s.store.UpdateTaxRateRemote(ctx, t.ID, ref)
}

func (s *taxSource) ClearRemote(ctx context.Context, e Entity) error {
	return s.store.ClearTaxRateRemote(ctx, e.(*model.TaxRate).ID)
}
