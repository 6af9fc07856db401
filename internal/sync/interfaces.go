// Package sync implements the reconciliation engine that mirrors local
// catalog records into the remote Square catalog. It compares each local
// entity's remote refs against the live remote object, decides between
// create, update, and skip, and dispatches upserts through the client
// adapter.
//
// The package contains two main components:
//
//   - [Reconciler] runs a single pass over one entity kind.
//   - [Engine] wires the per-kind [Source] implementations together, records
//     telemetry, and runs the polling daemon loop.
package sync

import (
	"context"

	"github.com/BrandonGoding/squaresync/internal/catalog"
	"github.com/BrandonGoding/squaresync/internal/model"
	"github.com/BrandonGoding/squaresync/internal/square"
)

// CatalogClient provides access to the remote catalog API.
// Implemented by [square.Client].
type CatalogClient interface {
	Retrieve(ctx context.Context, objectID string) (*catalog.Object, error)
	Upsert(ctx context.Context, idempotencyKey string, obj *catalog.Object) (*square.UpsertResult, error)
}

// EntityStore provides access to the local record database.
// Implemented by [store.Store].
type EntityStore interface {
	ListActiveCategories(ctx context.Context) ([]*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	InsertCategory(ctx context.Context, c *model.Category) error
	UpdateCategoryRemote(ctx context.Context, id int64, ref model.RemoteRef) error
	ClearCategoryRemote(ctx context.Context, id int64) error

	ListActiveTaxRates(ctx context.Context) ([]*model.TaxRate, error)
	UpdateTaxRateRemote(ctx context.Context, id int64, ref model.RemoteRef) error
	ClearTaxRateRemote(ctx context.Context, id int64) error

	ListActiveTopLevelItems(ctx context.Context) ([]*model.InventoryItem, error)
	ListActiveVariations(ctx context.Context, parentID int64) ([]*model.InventoryItem, error)
	UpdateInventoryItemRemote(ctx context.Context, id int64, item, variation model.RemoteRef) error
	UpdateInventoryVariationRemote(ctx context.Context, id int64, variation model.RemoteRef) error
	ClearInventoryItemRemote(ctx context.Context, id int64) error

	ListActiveMembershipTypes(ctx context.Context) ([]*model.MembershipType, error)
	UpdateMembershipRemote(ctx context.Context, id int64, item, variation model.RemoteRef) error
	ClearMembershipRemote(ctx context.Context, id int64) error

	ListConfirmedBookings(ctx context.Context) ([]*model.Booking, error)
	ListShowtimes(ctx context.Context, bookingID int64) ([]*model.Showtime, error)
	UpdateBookingRemote(ctx context.Context, id int64, ref model.RemoteRef) error
	UpdateShowtimeRemote(ctx context.Context, id int64, ref model.RemoteRef) error
	ClearBookingRemote(ctx context.Context, id int64) error
}

// Entity is a local record the reconciler can sync. Key is a stable
// "kind:id" string used in log lines and error messages.
type Entity interface {
	Key() string
}

// Source adapts one entity kind to the reconciler. Build constructs the full
// desired request graph with fresh temporary ids for anything not yet created
// remotely; the reconciler merges authoritative versions in before upserting.
type Source interface {
	// Kind returns the entity kind name ("category", "booking", ...).
	Kind() string
	// List returns the entities eligible for sync, in stable order.
	List(ctx context.Context) ([]Entity, error)
	// RemoteID returns the entity's root remote object id, or "" if the
	// entity has never been created remotely.
	RemoteID(e Entity) string
	// Build returns the desired catalog object graph for the entity.
	// A nil object (with nil error) means there is nothing to sync yet.
	Build(ctx context.Context, e Entity) (*catalog.Object, error)
	// Changed reports whether the desired graph differs from the remote
	// object. False skips the upsert entirely.
	Changed(e Entity, desired, remote *catalog.Object) bool
	// SaveResult persists the ids and versions returned by a successful
	// upsert of the given request graph.
	SaveResult(ctx context.Context, e Entity, req *catalog.Object, res *square.UpsertResult) error
	// ClearRemote drops the entity's remote refs so the next pass
	// re-creates it.
	ClearRemote(ctx context.Context, e Entity) error
}
