package sync

import (
	"context"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/catalog"
	"github.com/BrandonGoding/squaresync/internal/model"
	"github.com/BrandonGoding/squaresync/internal/square"
)

// membershipSource syncs membership tiers to remote ITEM objects, each with
// a single fixed-price variation named after the tier's duration.
type membershipSource struct {
	store        EntityStore
	categoryName string
}

// NewMembershipSource creates the Source for membership types. When
// categoryName is non-empty and that local category has a remote id, every
// membership item is filed under it.
func NewMembershipSource(store EntityStore, categoryName string) Source {
	return &membershipSource{store: store, categoryName: categoryName}
}

func (s *membershipSource) Kind() string { return "membership" }

func (s *membershipSource) List(ctx context.Context) ([]Entity, error) {
	types, err := s.store.ListActiveMembershipTypes(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]Entity, len(types))
	for i, m := range types {
		entities[i] = m
	}
	return entities, nil
}

func (s *membershipSource) RemoteID(e Entity) string {
	return e.(*model.MembershipType).Item.ID
}

func (s *membershipSource) Build(ctx context.Context, e Entity) (*catalog.Object, error) {
	m := e.(*model.MembershipType)

	itemID := m.Item.ID
	if itemID == "" {
		itemID = catalog.NewTempID("item")
	}
	varID := m.Variation.ID
	if varID == "" {
		varID = catalog.NewTempID("variation")
	}

	data := &catalog.ItemData{
		Name:        m.Name,
		Description: m.Description,
		Variations: []*catalog.Object{{
			Type:                  catalog.TypeItemVariation,
			ID:                    varID,
			PresentAtAllLocations: true,
			ItemVariationData: &catalog.ItemVariationData{
				Name:        m.VariationName(),
				ItemID:      itemID,
				PricingType: catalog.PricingFixed,
				PriceMoney:  &catalog.Money{Amount: m.PriceCents, Currency: m.Currency},
			},
		}},
	}

	if s.categoryName != "" {
		cat, err := s.store.GetCategoryByName(ctx, s.categoryName)
		if err != nil {
			return nil, fmt.Errorf("resolving membership category: %w", err)
		}
		if cat != nil && cat.Remote.Exists() {
			data.Categories = []catalog.ItemCategory{{ID: cat.Remote.ID}}
		}
	}

	return &catalog.Object{
		Type:                  catalog.TypeItem,
		ID:                    itemID,
		PresentAtAllLocations: true,
		ItemData:              data,
	}, nil
}

func (s *membershipSource) Changed(_ Entity, desired, remote *catalog.Object) bool {
	return objectChanged(desired, remote)
}

func (s *membershipSource) SaveResult(ctx context.Context, e Entity, req *catalog.Object, res *square.UpsertResult) error {
	m := e.(*model.MembershipType)

	itemRef := refFor(req, res)
	if !itemRef.Exists() {
		return fmt.Errorf("%s: %w", m.Key(), errUnusableResponse)
	}

	reqVar := req.FindVariationByName(m.VariationName())
	if reqVar == nil {
		return fmt.Errorf("%s: request graph lost its variation", m.Key())
	}
	varRef := variationRefFor(reqVar, res)
	if !varRef.Exists() {
		return fmt.Errorf("%s: variation: %w", m.Key(), errUnusableResponse)
	}

	return s.store.UpdateMembershipRemote(ctx, m.ID, itemRef, varRef)
}

func (s *membershipSource) ClearRemote(ctx context.Context, e Entity) error {
	return s.store.ClearMembershipRemote(ctx, e.(*model.MembershipType).ID)
}
