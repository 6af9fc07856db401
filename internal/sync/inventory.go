package sync

import (
	"context"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/catalog"
	"github.com/BrandonGoding/squaresync/internal/model"
	"github.com/BrandonGoding/squaresync/internal/square"
)

// itemSource syncs top-level inventory items to remote ITEM objects, with
// the item's variation rows (or, for a leaf item, a single default variation
// built from the item itself) nested as ITEM_VARIATION objects.
type itemSource struct {
	store    EntityStore
	currency string
}

// NewItemSource creates the Source for concession and merchandise items.
// The currency applies to every variation price.
func NewItemSource(store EntityStore, currency string) Source {
	return &itemSource{store: store, currency: currency}
}

func (s *itemSource) Kind() string { return "item" }

func (s *itemSource) List(ctx context.Context) ([]Entity, error) {
	items, err := s.store.ListActiveTopLevelItems(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]Entity, len(items))
	for i, it := range items {
		entities[i] = it
	}
	return entities, nil
}

func (s *itemSource) RemoteID(e Entity) string {
	return e.(*model.InventoryItem).Item.ID
}

// children returns the variation rows to sync under the item. A leaf item
// with no variation rows sells through itself: the returned slice holds the
// item's own row, priced from its own fields and tracked by its Variation ref.
func (s *itemSource) children(ctx context.Context, item *model.InventoryItem) ([]*model.InventoryItem, error) {
	kids, err := s.store.ListActiveVariations(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if len(kids) == 0 {
		kids = []*model.InventoryItem{item}
	}
	return kids, nil
}

func (s *itemSource) Build(ctx context.Context, e Entity) (*catalog.Object, error) {
	item := e.(*model.InventoryItem)

	itemID := item.Item.ID
	if itemID == "" {
		itemID = catalog.NewTempID("item")
	}

	kids, err := s.children(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("listing variations: %w", err)
	}
	variations := make([]*catalog.Object, 0, len(kids))
	for _, kid := range kids {
		varID := kid.Variation.ID
		if varID == "" {
			varID = catalog.NewTempID("variation")
		}
		currency := kid.Currency
		if currency == "" {
			currency = s.currency
		}
		variations = append(variations, &catalog.Object{
			Type:                  catalog.TypeItemVariation,
			ID:                    varID,
			PresentAtAllLocations: true,
			ItemVariationData: &catalog.ItemVariationData{
				Name:        kid.Name,
				ItemID:      itemID,
				PricingType: catalog.PricingFixed,
				PriceMoney:  &catalog.Money{Amount: kid.PriceCents, Currency: currency},
				IsTaxable:   item.IsTaxable,
			},
		})
	}

	data := &catalog.ItemData{
		Name:        item.Name,
		Description: item.Description,
		IsTaxable:   item.IsTaxable,
		Variations:  variations,
	}
	if item.TaxRateID != nil {
		if id, err := s.taxRemoteID(ctx, *item.TaxRateID); err != nil {
			return nil, err
		} else if id != "" {
			data.TaxIDs = []string{id}
		}
	}
	if item.CategoryID != nil {
		if id, err := s.categoryRemoteID(ctx, *item.CategoryID); err != nil {
			return nil, err
		} else if id != "" {
			data.Categories = []catalog.ItemCategory{{ID: id}}
		}
	}

	return &catalog.Object{
		Type:                  catalog.TypeItem,
		ID:                    itemID,
		PresentAtAllLocations: true,
		ItemData:              data,
	}, nil
}

// taxRemoteID looks up the remote id of a local tax rate. Empty when the tax
// has not been synced yet; the reference attaches on a later pass.
func (s *itemSource) taxRemoteID(ctx context.Context, id int64) (string, error) {
	rates, err := s.store.ListActiveTaxRates(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving tax reference: %w", err)
	}
	for _, t := range rates {
		if t.ID == id {
			return t.Remote.ID, nil
		}
	}
	return "", nil
}

func (s *itemSource) categoryRemoteID(ctx context.Context, id int64) (string, error) {
	cats, err := s.store.ListActiveCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving category reference: %w", err)
	}
	for _, c := range cats {
		if c.ID == id {
			return c.Remote.ID, nil
		}
	}
	return "", nil
}

func (s *itemSource) Changed(_ Entity, desired, remote *catalog.Object) bool {
	return objectChanged(desired, remote)
}

func (s *itemSource) SaveResult(ctx context.Context, e Entity, req *catalog.Object, res *square.UpsertResult) error {
	item := e.(*model.InventoryItem)

	itemRef := refFor(req, res)
	if !itemRef.Exists() {
		return fmt.Errorf("%s: %w", item.Key(), errUnusableResponse)
	}

	kids, err := s.children(ctx, item)
	if err != nil {
		return fmt.Errorf("listing variations: %w", err)
	}

	// Pair request variations with their local rows by name; names are the
	// one attribute both sides share regardless of temporary ids.
	var itemVariation model.RemoteRef
	for _, kid := range kids {
		reqVar := req.FindVariationByName(kid.Name)
		if reqVar == nil {
			continue
		}
		ref := variationRefFor(reqVar, res)
		if !ref.Exists() {
			return fmt.Errorf("%s: variation %q: %w", item.Key(), kid.Name, errUnusableResponse)
		}
		if kid.ID == item.ID {
			itemVariation = ref
			continue
		}
		if err := s.store.UpdateInventoryVariationRemote(ctx, kid.ID, ref); err != nil {
			return err
		}
	}

	return s.store.UpdateInventoryItemRemote(ctx, item.ID, itemRef, itemVariation)
}

func (s *itemSource) ClearRemote(ctx context.Context, e Entity) error {
	return s.store.ClearInventoryItemRemote(ctx, e.(*model.InventoryItem).ID)
}
