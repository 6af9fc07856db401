package sync

import (
	"context"
	"fmt"

	"github.com/BrandonGoding/squaresync/internal/catalog"
	"github.com/BrandonGoding/squaresync/internal/model"
	"github.com/BrandonGoding/squaresync/internal/square"
)

// categorySource syncs local categories to remote CATEGORY objects.
type categorySource struct {
	store EntityStore
}

// NewCategorySource creates the Source for catalog categories.
func NewCategorySource(store EntityStore) Source {
	return &categorySource{store: store}
}

func (s *categorySource) Kind() string { return "category" }

func (s *categorySource) List(ctx context.Context) ([]Entity, error) {
	cats, err := s.store.ListActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]Entity, len(cats))
	for i, c := range cats {
		entities[i] = c
	}
	return entities, nil
}

func (s *categorySource) RemoteID(e Entity) string {
	return e.(*model.Category).Remote.ID
}

func (s *categorySource) Build(_ context.Context, e Entity) (*catalog.Object, error) {
	c := e.(*model.Category)
	id := c.Remote.ID
	if id == "" {
		id = catalog.NewTempID("category")
	}
	return &catalog.Object{
		Type:                  catalog.TypeCategory,
		ID:                    id,
		PresentAtAllLocations: true,
		CategoryData: &catalog.CategoryData{
			Name:        c.Name,
			Description: c.Description,
			IsTopLevel:  true,
		},
	}, nil
}

func (s *categorySource) Changed(_ Entity, desired, remote *catalog.Object) bool {
	return objectChanged(desired, remote)
}

func (s *categorySource) SaveResult(ctx context.Context, e Entity, req *catalog.Object, res *square.UpsertResult) error {
	c := e.(*model.Category)
	ref := refFor(req, res)
	if !ref.Exists() {
		return fmt.Errorf("%s: %w", c.Key(), errUnusableResponse)
	}
	return s.store.UpdateCategoryRemote(ctx, c.ID, ref)
}

func (s *categorySource) ClearRemote(ctx context.Context, e Entity) error {
	return s.store.ClearCategoryRemote(ctx, e.(*model.Category).ID)
}
