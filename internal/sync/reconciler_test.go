package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/BrandonGoding/squaresync/internal/catalog"
	"github.com/BrandonGoding/squaresync/internal/model"
	"github.com/BrandonGoding/squaresync/internal/square"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureClient records every upsert request graph before delegating.
type captureClient struct {
	*mockClient
	requests []*catalog.Object
}

func (c *captureClient) Upsert(ctx context.Context, key string, obj *catalog.Object) (*square.UpsertResult, error) {
	c.requests = append(c.requests, cloneObject(obj))
	return c.mockClient.Upsert(ctx, key, obj)
}

func TestReconciler_CreatesCategory(t *testing.T) {
	store := newMockEntityStore()
	cat := store.seedCategory(&model.Category{Name: "Concessions", Description: "Snacks and drinks", Active: true})
	client := newMockClient()
	r := NewReconciler(client, testLogger())

	stats, err := r.Run(context.Background(), NewCategorySource(store))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Created != 1 || stats.Errors != 0 {
		t.Fatalf("stats = %+v, want 1 created", stats)
	}

	if !cat.Remote.Exists() {
		t.Fatal("category remote ref not persisted")
	}
	if strings.HasPrefix(cat.Remote.ID, "#") {
		t.Fatalf("persisted a temporary id: %q", cat.Remote.ID)
	}
	if cat.Remote.Version == nil || *cat.Remote.Version != 1 {
		t.Fatalf("persisted version = %v, want 1", cat.Remote.Version)
	}

	remote := client.object(cat.Remote.ID)
	if remote == nil || remote.CategoryData == nil || remote.CategoryData.Name != "Concessions" {
		t.Fatalf("remote object = %+v", remote)
	}
}

func TestReconciler_CreateSendsNoVersion(t *testing.T) {
	store := newMockEntityStore()
	store.seedCategory(&model.Category{Name: "Events", Active: true})
	client := &captureClient{mockClient: newMockClient()}
	r := NewReconciler(client, testLogger())

	if _, err := r.Run(context.Background(), NewCategorySource(store)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.requests) != 1 {
		t.Fatalf("got %d upserts, want 1", len(client.requests))
	}
	req := client.requests[0]
	if !catalog.IsTempID(req.ID) {
		t.Errorf("create request id = %q, want temporary", req.ID)
	}
	if req.Version != nil {
		t.Errorf("create request carried version %d", *req.Version)
	}
}

func TestReconciler_SecondPassSkips(t *testing.T) {
	store := newMockEntityStore()
	store.seedCategory(&model.Category{Name: "Concessions", Active: true})
	client := newMockClient()
	r := NewReconciler(client, testLogger())
	src := NewCategorySource(store)

	if _, err := r.Run(context.Background(), src); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	stats, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stats.Skipped != 1 || stats.Created != 0 || stats.Updated != 0 {
		t.Fatalf("second pass stats = %+v, want 1 skipped", stats)
	}
	if upserts, _ := client.counts(); upserts != 1 {
		t.Fatalf("got %d upserts across both passes, want 1", upserts)
	}
}

func TestReconciler_UpdateCarriesVersion(t *testing.T) {
	store := newMockEntityStore()
	cat := store.seedCategory(&model.Category{Name: "Concessions", Active: true})
	client := newMockClient()
	r := NewReconciler(client, testLogger())
	src := NewCategorySource(store)

	if _, err := r.Run(context.Background(), src); err != nil {
		t.Fatalf("create Run: %v", err)
	}
	firstID := cat.Remote.ID

	cat.Name = "Concessions & Drinks"
	stats, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("update Run: %v", err)
	}
	if stats.Updated != 1 {
		t.Fatalf("stats = %+v, want 1 updated", stats)
	}
	if cat.Remote.ID != firstID {
		t.Fatalf("remote id changed on update: %q to %q", firstID, cat.Remote.ID)
	}
	if cat.Remote.Version == nil || *cat.Remote.Version != 2 {
		t.Fatalf("persisted version = %v, want 2", cat.Remote.Version)
	}
	remote := client.object(firstID)
	if remote.CategoryData.Name != "Concessions & Drinks" {
		t.Fatalf("remote name = %q", remote.CategoryData.Name)
	}
}

func TestReconciler_VersionConflictSkipsEntity(t *testing.T) {
	store := newMockEntityStore()
	cat := store.seedCategory(&model.Category{Name: "Concessions", Active: true})
	client := newMockClient()
	r := NewReconciler(client, testLogger())
	src := NewCategorySource(store)

	if _, err := r.Run(context.Background(), src); err != nil {
		t.Fatalf("create Run: %v", err)
	}

	cat.Name = "Concessions!"
	client.failName = "Concessions!"
	client.failErr = &square.APIError{Status: 409, Code: "VERSION_MISMATCH"}

	stats, err := r.Run(context.Background(), src)
	if !errors.Is(err, square.ErrVersionConflict) {
		t.Fatalf("Run error = %v, want version conflict", err)
	}
	if stats.Errors != 1 {
		t.Fatalf("stats = %+v, want 1 error", stats)
	}
	// Refs untouched; the next pass fetches a fresh version and retries.
	if cat.Remote.Version == nil || *cat.Remote.Version != 1 {
		t.Fatalf("persisted version = %v, want 1 after failed update", cat.Remote.Version)
	}

	client.failName = ""
	stats, err = r.Run(context.Background(), src)
	if err != nil || stats.Updated != 1 {
		t.Fatalf("retry pass stats = %+v, err = %v", stats, err)
	}
}

func TestUpsert_StaleVersionRejected(t *testing.T) {
	store := newMockEntityStore()
	cat := store.seedCategory(&model.Category{Name: "Concessions", Active: true})
	client := newMockClient()
	r := NewReconciler(client, testLogger())
	src := NewCategorySource(store)

	if _, err := r.Run(context.Background(), src); err != nil {
		t.Fatalf("create Run: %v", err)
	}
	cat.Name = "Concessions & Drinks"
	if _, err := r.Run(context.Background(), src); err != nil {
		t.Fatalf("update Run: %v", err)
	}
	if cat.Remote.Version == nil || *cat.Remote.Version != 2 {
		t.Fatalf("persisted version = %v, want 2", cat.Remote.Version)
	}

	// A writer still holding the first pass's version must be rejected,
	// not silently clobber the second pass's write.
	stale := &catalog.Object{
		Type:         catalog.TypeCategory,
		ID:           cat.Remote.ID,
		Version:      int64p(1),
		CategoryData: &catalog.CategoryData{Name: "Stale write"},
	}
	_, err := client.Upsert(context.Background(), square.IdempotencyKey("test"), stale)
	if !errors.Is(err, square.ErrVersionConflict) {
		t.Fatalf("stale upsert error = %v, want version conflict", err)
	}
	remote := client.object(cat.Remote.ID)
	if remote.CategoryData.Name != "Concessions & Drinks" {
		t.Fatalf("stale write went through: remote name = %q", remote.CategoryData.Name)
	}
}

func TestReconciler_BatchContinuesPastFailure(t *testing.T) {
	store := newMockEntityStore()
	a := store.seedCategory(&model.Category{Name: "A", Active: true})
	b := store.seedCategory(&model.Category{Name: "B", Active: true})
	c := store.seedCategory(&model.Category{Name: "C", Active: true})

	client := newMockClient()
	client.failName = "B"
	client.failErr = &square.APIError{Status: 500, Code: "INTERNAL_SERVER_ERROR"}
	r := NewReconciler(client, testLogger())

	stats, err := r.Run(context.Background(), NewCategorySource(store))
	if err == nil {
		t.Fatal("Run returned nil error with a failing entity")
	}
	if stats.Created != 2 || stats.Errors != 1 {
		t.Fatalf("stats = %+v, want 2 created 1 error", stats)
	}
	if !a.Remote.Exists() || !c.Remote.Exists() {
		t.Fatal("entities around the failure were not synced")
	}
	if b.Remote.Exists() {
		t.Fatal("failed entity got a remote ref")
	}
}

func TestReconciler_NotFoundClearsAndRecreates(t *testing.T) {
	store := newMockEntityStore()
	cat := store.seedCategory(&model.Category{Name: "Concessions", Active: true})
	client := newMockClient()
	r := NewReconciler(client, testLogger())
	src := NewCategorySource(store)

	if _, err := r.Run(context.Background(), src); err != nil {
		t.Fatalf("create Run: %v", err)
	}
	firstID := cat.Remote.ID

	// Someone deletes the object in the remote dashboard.
	client.remove(firstID)

	stats, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("clearing Run: %v", err)
	}
	if stats.Skipped != 1 {
		t.Fatalf("stats = %+v, want 1 skipped", stats)
	}
	if cat.Remote.Exists() {
		t.Fatalf("remote ref not cleared: %+v", cat.Remote)
	}

	stats, err = r.Run(context.Background(), src)
	if err != nil || stats.Created != 1 {
		t.Fatalf("re-create pass stats = %+v, err = %v", stats, err)
	}
	if !cat.Remote.Exists() || cat.Remote.ID == firstID {
		t.Fatalf("expected a fresh remote id, got %+v", cat.Remote)
	}
}

func TestReconciler_TempIDsRegeneratedOnRetry(t *testing.T) {
	store := newMockEntityStore()
	store.seedCategory(&model.Category{Name: "Concessions", Active: true})
	client := &captureClient{mockClient: newMockClient()}
	client.failName = "Concessions"
	client.failErr = &square.APIError{Status: 503, Code: "SERVICE_UNAVAILABLE"}
	r := NewReconciler(client, testLogger())
	src := NewCategorySource(store)

	if _, err := r.Run(context.Background(), src); err == nil {
		t.Fatal("expected first pass to fail")
	}
	client.failName = ""
	if _, err := r.Run(context.Background(), src); err != nil {
		t.Fatalf("retry pass: %v", err)
	}

	if len(client.requests) != 2 {
		t.Fatalf("got %d upserts, want 2", len(client.requests))
	}
	if client.requests[0].ID == client.requests[1].ID {
		t.Fatalf("temporary id %q reused across attempts", client.requests[0].ID)
	}
}

func TestMergeVersions_MatchesNestedByID(t *testing.T) {
	remote := &catalog.Object{
		Type: catalog.TypeItem, ID: "I1", Version: int64p(3),
		ItemData: &catalog.ItemData{
			Name: "Popcorn",
			Variations: []*catalog.Object{
				{Type: catalog.TypeItemVariation, ID: "V1", Version: int64p(7), ItemVariationData: &catalog.ItemVariationData{Name: "Large"}},
			},
		},
	}
	req := &catalog.Object{
		Type: catalog.TypeItem, ID: "I1",
		ItemData: &catalog.ItemData{
			Name: "Popcorn",
			Variations: []*catalog.Object{
				{Type: catalog.TypeItemVariation, ID: "V1", ItemVariationData: &catalog.ItemVariationData{Name: "Large"}},
				{Type: catalog.TypeItemVariation, ID: catalog.NewTempID("variation"), ItemVariationData: &catalog.ItemVariationData{Name: "Small"}},
			},
		},
	}

	mergeVersions(req, remote)

	if req.Version == nil || *req.Version != 3 {
		t.Errorf("root version = %v, want 3", req.Version)
	}
	if req.ItemData.Variations[0].Version == nil || *req.ItemData.Variations[0].Version != 7 {
		t.Errorf("existing variation version = %v, want 7", req.ItemData.Variations[0].Version)
	}
	if req.ItemData.Variations[1].Version != nil {
		t.Errorf("new variation got version %d", *req.ItemData.Variations[1].Version)
	}
}
