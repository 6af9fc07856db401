package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BrandonGoding/squaresync/internal/catalog"
	"github.com/BrandonGoding/squaresync/internal/model"
	"github.com/BrandonGoding/squaresync/internal/square"
)

// --- Mock catalog client -----------------------------------------------------

// mockClient simulates the remote catalog: it assigns permanent ids to
// temporary ones, enforces optimistic concurrency on versions, and returns
// the stored graph on Retrieve.
type mockClient struct {
	mu        sync.Mutex
	objects   map[string]*catalog.Object // permanent root id → stored graph
	nextID    int
	upserts   int
	retrieves int

	// failName makes Upsert fail for the root object with that display
	// name, simulating one bad entity in a batch.
	failName string
	failErr  error

	// dropMappings strips id mappings from responses, forcing resolution
	// through the returned object graph.
	dropMappings bool
	// reverseMappings returns the id mappings in reverse order.
	reverseMappings bool
}

func newMockClient() *mockClient {
	return &mockClient{objects: make(map[string]*catalog.Object)}
}

func cloneObject(o *catalog.Object) *catalog.Object {
	raw, err := json.Marshal(o)
	if err != nil {
		panic(err)
	}
	var cp catalog.Object
	if err := json.Unmarshal(raw, &cp); err != nil {
		panic(err)
	}
	return &cp
}

func objectName(o *catalog.Object) string {
	switch {
	case o.ItemData != nil:
		return o.ItemData.Name
	case o.ItemVariationData != nil:
		return o.ItemVariationData.Name
	case o.CategoryData != nil:
		return o.CategoryData.Name
	case o.TaxData != nil:
		return o.TaxData.Name
	}
	return ""
}

func int64p(v int64) *int64 { return &v }

func (m *mockClient) Retrieve(_ context.Context, objectID string) (*catalog.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieves++

	obj, ok := m.objects[objectID]
	if !ok {
		return nil, &square.APIError{Status: 404, Code: "NOT_FOUND", Detail: objectID}
	}
	return cloneObject(obj), nil
}

func (m *mockClient) Upsert(_ context.Context, idempotencyKey string, obj *catalog.Object) (*square.UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++

	if idempotencyKey == "" {
		return nil, fmt.Errorf("empty idempotency key")
	}
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	if m.failName != "" && objectName(obj) == m.failName {
		return nil, m.failErr
	}

	cp := cloneObject(obj)

	// Locate the stored graph when updating an existing root.
	var stored *catalog.Object
	if !catalog.IsTempID(cp.ID) {
		stored = m.objects[cp.ID]
		if stored == nil {
			return nil, &square.APIError{Status: 404, Code: "NOT_FOUND", Detail: cp.ID}
		}
	}

	var mappings []square.IDMapping
	assign := func(o *catalog.Object, existing *catalog.Object) error {
		if catalog.IsTempID(o.ID) {
			m.nextID++
			permanent := fmt.Sprintf("R%d", m.nextID)
			mappings = append(mappings, square.IDMapping{ClientObjectID: o.ID, ObjectID: permanent})
			o.ID = permanent
			o.Version = int64p(1)
			return nil
		}
		if existing == nil {
			return &square.APIError{Status: 404, Code: "NOT_FOUND", Detail: o.ID}
		}
		if o.Version == nil || existing.Version == nil || *o.Version != *existing.Version {
			return &square.APIError{Status: 409, Code: "VERSION_MISMATCH", Detail: o.ID}
		}
		o.Version = int64p(*existing.Version + 1)
		return nil
	}

	if err := assign(cp, stored); err != nil {
		return nil, err
	}
	if cp.ItemData != nil {
		for _, v := range cp.ItemData.Variations {
			var existing *catalog.Object
			if stored != nil && !catalog.IsTempID(v.ID) {
				existing = stored.FindVariation(v.ID)
			}
			if err := assign(v, existing); err != nil {
				return nil, err
			}
			if v.ItemVariationData != nil {
				v.ItemVariationData.ItemID = cp.ID
			}
		}
	}

	m.objects[cp.ID] = cloneObject(cp)

	res := &square.UpsertResult{Object: cloneObject(cp), IDMappings: mappings}
	if m.dropMappings {
		res.IDMappings = nil
	} else if m.reverseMappings {
		for i, j := 0, len(res.IDMappings)-1; i < j; i, j = i+1, j-1 {
			res.IDMappings[i], res.IDMappings[j] = res.IDMappings[j], res.IDMappings[i]
		}
	}
	return res, nil
}

func (m *mockClient) object(id string) *catalog.Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.objects[id]; ok {
		return cloneObject(o)
	}
	return nil
}

func (m *mockClient) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
}

func (m *mockClient) counts() (upserts, retrieves int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts, m.retrieves
}

// --- Mock entity store -------------------------------------------------------

// mockEntityStore is an in-memory EntityStore. Update methods fail on
// unknown ids, matching the real store's zero-row check.
type mockEntityStore struct {
	mu          sync.Mutex
	categories  []*model.Category
	taxes       []*model.TaxRate
	items       []*model.InventoryItem
	memberships []*model.MembershipType
	bookings    []*model.Booking
	showtimes   []*model.Showtime
	nextID      int64
}

func newMockEntityStore() *mockEntityStore {
	return &mockEntityStore{}
}

func (m *mockEntityStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockEntityStore) seedCategory(c *model.Category) *model.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.categories = append(m.categories, c)
	return c
}

func (m *mockEntityStore) seedTaxRate(t *model.TaxRate) *model.TaxRate {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	m.taxes = append(m.taxes, t)
	return t
}

func (m *mockEntityStore) seedItem(i *model.InventoryItem) *model.InventoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	i.ID = m.id()
	m.items = append(m.items, i)
	return i
}

func (m *mockEntityStore) seedMembership(t *model.MembershipType) *model.MembershipType {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	m.memberships = append(m.memberships, t)
	return t
}

func (m *mockEntityStore) seedBooking(b *model.Booking) *model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.id()
	m.bookings = append(m.bookings, b)
	return b
}

func (m *mockEntityStore) seedShowtime(s *model.Showtime) *model.Showtime {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	m.showtimes = append(m.showtimes, s)
	return s
}

func (m *mockEntityStore) ListActiveCategories(_ context.Context) ([]*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Category
	for _, c := range m.categories {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockEntityStore) GetCategoryByName(_ context.Context, name string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockEntityStore) InsertCategory(_ context.Context, c *model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.categories = append(m.categories, c)
	return nil
}

func (m *mockEntityStore) UpdateCategoryRemote(_ context.Context, id int64, ref model.RemoteRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.ID == id {
			c.Remote = ref
			return nil
		}
	}
	return fmt.Errorf("category %d not found", id)
}

func (m *mockEntityStore) ClearCategoryRemote(ctx context.Context, id int64) error {
	return m.UpdateCategoryRemote(ctx, id, model.RemoteRef{})
}

func (m *mockEntityStore) ListActiveTaxRates(_ context.Context) ([]*model.TaxRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.TaxRate
	for _, t := range m.taxes {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockEntityStore) UpdateTaxRateRemote(_ context.Context, id int64, ref model.RemoteRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.taxes {
		if t.ID == id {
			t.Remote = ref
			return nil
		}
	}
	return fmt.Errorf("tax rate %d not found", id)
}

func (m *mockEntityStore) ClearTaxRateRemote(ctx context.Context, id int64) error {
	return m.UpdateTaxRateRemote(ctx, id, model.RemoteRef{})
}

func (m *mockEntityStore) ListActiveTopLevelItems(_ context.Context) ([]*model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.InventoryItem
	for _, i := range m.items {
		if i.Active && i.ParentID == nil {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *mockEntityStore) ListActiveVariations(_ context.Context, parentID int64) ([]*model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.InventoryItem
	for _, i := range m.items {
		if i.Active && i.ParentID != nil && *i.ParentID == parentID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *mockEntityStore) UpdateInventoryItemRemote(_ context.Context, id int64, item, variation model.RemoteRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.items {
		if i.ID == id {
			i.Item = item
			i.Variation = variation
			return nil
		}
	}
	return fmt.Errorf("inventory item %d not found", id)
}

func (m *mockEntityStore) UpdateInventoryVariationRemote(_ context.Context, id int64, variation model.RemoteRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.items {
		if i.ID == id {
			i.Variation = variation
			return nil
		}
	}
	return fmt.Errorf("inventory item %d not found", id)
}

func (m *mockEntityStore) ClearInventoryItemRemote(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.items {
		if i.ID == id || (i.ParentID != nil && *i.ParentID == id) {
			i.Item = model.RemoteRef{}
			i.Variation = model.RemoteRef{}
		}
	}
	return nil
}

func (m *mockEntityStore) ListActiveMembershipTypes(_ context.Context) ([]*model.MembershipType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.MembershipType
	for _, t := range m.memberships {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockEntityStore) UpdateMembershipRemote(_ context.Context, id int64, item, variation model.RemoteRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.memberships {
		if t.ID == id {
			t.Item = item
			t.Variation = variation
			return nil
		}
	}
	return fmt.Errorf("membership type %d not found", id)
}

func (m *mockEntityStore) ClearMembershipRemote(ctx context.Context, id int64) error {
	return m.UpdateMembershipRemote(ctx, id, model.RemoteRef{}, model.RemoteRef{})
}

func (m *mockEntityStore) ListConfirmedBookings(_ context.Context) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.Confirmed {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockEntityStore) ListShowtimes(_ context.Context, bookingID int64) ([]*model.Showtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Showtime
	for _, s := range m.showtimes {
		if s.BookingID == bookingID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockEntityStore) UpdateBookingRemote(_ context.Context, id int64, ref model.RemoteRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			b.Item = ref
			return nil
		}
	}
	return fmt.Errorf("booking %d not found", id)
}

func (m *mockEntityStore) UpdateShowtimeRemote(_ context.Context, id int64, ref model.RemoteRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.showtimes {
		if s.ID == id {
			s.Variation = ref
			return nil
		}
	}
	return fmt.Errorf("showtime %d not found", id)
}

func (m *mockEntityStore) ClearBookingRemote(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			b.Item = model.RemoteRef{}
		}
	}
	for _, s := range m.showtimes {
		if s.BookingID == id {
			s.Variation = model.RemoteRef{}
		}
	}
	return nil
}
