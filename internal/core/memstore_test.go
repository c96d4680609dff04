package core_test

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"
	"testing"
	"time"

	"retail-backoffice/internal/core"
)

// memStore is an in-memory core.Store. WithinTx serializes transactions and
// restores the pre-transaction state when fn fails.
type memStore struct {
	mu    sync.Mutex
	state memState

	// failAmendmentUpdate makes Amendments().UpdateStatus fail, to exercise rollback.
	failAmendmentUpdate error
}

type memState struct {
	nextID     int
	orders     map[int]core.Order
	items      map[int]core.OrderItem
	amendments map[int]core.Amendment
	versions   []core.OrderVersion
	shipments  map[int]core.Shipment
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		nextID:     100,
		orders:     map[int]core.Order{},
		items:      map[int]core.OrderItem{},
		amendments: map[int]core.Amendment{},
		shipments:  map[int]core.Shipment{},
	}}
}

func (s memState) clone() memState {
	return memState{
		nextID:     s.nextID,
		orders:     maps.Clone(s.orders),
		items:      maps.Clone(s.items),
		amendments: maps.Clone(s.amendments),
		versions:   append([]core.OrderVersion(nil), s.versions...),
		shipments:  maps.Clone(s.shipments),
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(r core.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.state.clone()
	if err := fn(memRepos{s}); err != nil {
		s.state = saved
		return err
	}
	return nil
}

func (s *memStore) id() int {
	s.state.nextID++
	return s.state.nextID
}

// seedOrder inserts an order and its lines directly, bypassing the services.
func (s *memStore) seedOrder(t *testing.T, o core.Order, items ...core.OrderItem) (core.Order, []core.OrderItem) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.id()
	}
	var subtotal core.Cents
	for i := range items {
		items[i].ID = s.id()
		items[i].OrderID = o.ID
		items[i].LineTotal = items[i].Value()
		subtotal += items[i].Value()
		s.state.items[items[i].ID] = items[i]
	}
	if o.Subtotal == 0 {
		o.Subtotal = subtotal
		o.Total = subtotal - o.Discount + o.Tax
	}
	s.state.orders[o.ID] = o
	return o, items
}

func (s *memStore) order(t *testing.T, id int) core.Order {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.orders[id]
	if !ok {
		t.Fatalf("order %d not in store", id)
	}
	return o
}

func (s *memStore) orderItems(orderID int) []core.OrderItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memRepos{s}.listItems(orderID)
}

func (s *memStore) versionCount(orderID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.state.versions {
		if v.OrderID == orderID {
			n++
		}
	}
	return n
}

type memRepos struct{ s *memStore }

func (r memRepos) Orders() core.OrderRepository         { return memOrders(r) }
func (r memRepos) Amendments() core.AmendmentRepository { return memAmendments(r) }
func (r memRepos) Versions() core.VersionRepository     { return memVersions(r) }
func (r memRepos) Shipments() core.ShipmentRepository   { return memShipments(r) }

func (r memRepos) listItems(orderID int) []core.OrderItem {
	var out []core.OrderItem
	for _, it := range r.s.state.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memOrders memRepos

func (r memOrders) LockOrder(ctx context.Context, orderID int) (*core.Order, error) {
	return r.GetOrder(ctx, orderID)
}

func (r memOrders) GetOrder(_ context.Context, orderID int) (*core.Order, error) {
	o, ok := r.s.state.orders[orderID]
	if !ok {
		return nil, &core.NotFoundError{Entity: "order", ID: orderID}
	}
	return &o, nil
}

func (r memOrders) ListItems(_ context.Context, orderID int) ([]core.OrderItem, error) {
	return memRepos(r).listItems(orderID), nil
}

func (r memOrders) InsertItem(_ context.Context, item *core.OrderItem) error {
	item.ID = r.s.id()
	item.CreatedAt = time.Now()
	r.s.state.items[item.ID] = *item
	return nil
}

func (r memOrders) UpdateItem(_ context.Context, item *core.OrderItem) error {
	if _, ok := r.s.state.items[item.ID]; !ok {
		return &core.NotFoundError{Entity: "order_item", ID: item.ID}
	}
	r.s.state.items[item.ID] = *item
	return nil
}

func (r memOrders) UpdateTotals(_ context.Context, orderID int, t core.Totals) error {
	o := r.s.state.orders[orderID]
	o.Subtotal, o.Discount, o.Tax, o.Total = t.Subtotal, t.Discount, t.Tax, t.Total
	r.s.state.orders[orderID] = o
	return nil
}

func (r memOrders) SetVersionNumber(_ context.Context, orderID, n int) error {
	o := r.s.state.orders[orderID]
	o.VersionNumber = n
	r.s.state.orders[orderID] = o
	return nil
}

type memAmendments memRepos

func (r memAmendments) NextSequence(_ context.Context, orderID int) (int, error) {
	n := 0
	for _, a := range r.s.state.amendments {
		if a.OrderID == orderID && a.Sequence > n {
			n = a.Sequence
		}
	}
	return n + 1, nil
}

func (r memAmendments) Insert(_ context.Context, a *core.Amendment) error {
	a.ID = r.s.id()
	for i := range a.Items {
		a.Items[i].ID = r.s.id()
		a.Items[i].AmendmentID = a.ID
	}
	cp := *a
	cp.Items = append([]core.AmendmentItem(nil), a.Items...)
	r.s.state.amendments[a.ID] = cp
	return nil
}

func (r memAmendments) Lock(ctx context.Context, id int) (*core.Amendment, error) {
	return r.Get(ctx, id)
}

func (r memAmendments) Get(_ context.Context, id int) (*core.Amendment, error) {
	a, ok := r.s.state.amendments[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "amendment", ID: id}
	}
	a.Items = append([]core.AmendmentItem(nil), a.Items...)
	return &a, nil
}

func (r memAmendments) list(keep func(core.Amendment) bool) []core.Amendment {
	var out []core.Amendment
	for _, a := range r.s.state.amendments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memAmendments) ListForOrder(_ context.Context, orderID int) ([]core.Amendment, error) {
	return r.list(func(a core.Amendment) bool { return a.OrderID == orderID }), nil
}

func (r memAmendments) ListPending(context.Context) ([]core.Amendment, error) {
	return r.list(func(a core.Amendment) bool { return a.Status == core.AmendmentPendingApproval }), nil
}

func (r memAmendments) UpdateStatus(_ context.Context, a *core.Amendment) error {
	if r.s.failAmendmentUpdate != nil {
		return r.s.failAmendmentUpdate
	}
	stored, ok := r.s.state.amendments[a.ID]
	if !ok {
		return &core.NotFoundError{Entity: "amendment", ID: a.ID}
	}
	if stored.Status.Final() {
		return errors.New("amendment row is immutable")
	}
	cp := *a
	cp.Items = stored.Items
	r.s.state.amendments[a.ID] = cp
	return nil
}

type memVersions memRepos

func (r memVersions) LatestNumber(_ context.Context, orderID int) (int, error) {
	n := 0
	for _, v := range r.s.state.versions {
		if v.OrderID == orderID && v.VersionNumber > n {
			n = v.VersionNumber
		}
	}
	return n, nil
}

func (r memVersions) Insert(_ context.Context, v *core.OrderVersion) error {
	v.ID = r.s.id()
	r.s.state.versions = append(r.s.state.versions, *v)
	return nil
}

func (r memVersions) List(_ context.Context, orderID int) ([]core.OrderVersion, error) {
	var out []core.OrderVersion
	for _, v := range r.s.state.versions {
		if v.OrderID == orderID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r memVersions) Get(_ context.Context, orderID, n int) (*core.OrderVersion, error) {
	for _, v := range r.s.state.versions {
		if v.OrderID == orderID && v.VersionNumber == n {
			return &v, nil
		}
	}
	return nil, &core.NotFoundError{Entity: "order version", ID: n}
}

type memShipments memRepos

func (r memShipments) Insert(_ context.Context, sh *core.Shipment) error {
	sh.ID = r.s.id()
	for i := range sh.Items {
		sh.Items[i].ID = r.s.id()
		sh.Items[i].ShipmentID = sh.ID
	}
	cp := *sh
	cp.Items = append([]core.ShipmentItem(nil), sh.Items...)
	r.s.state.shipments[sh.ID] = cp
	return nil
}

func (r memShipments) Get(_ context.Context, id int) (*core.Shipment, error) {
	sh, ok := r.s.state.shipments[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "shipment", ID: id}
	}
	return &sh, nil
}

func (r memShipments) ListForOrder(_ context.Context, orderID int) ([]core.Shipment, error) {
	var out []core.Shipment
	for _, sh := range r.s.state.shipments {
		if sh.OrderID == orderID {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memShipments) UpdateStatus(_ context.Context, sh *core.Shipment) error {
	stored, ok := r.s.state.shipments[sh.ID]
	if !ok {
		return &core.NotFoundError{Entity: "shipment", ID: sh.ID}
	}
	stored.Status, stored.ShippedAt, stored.DeliveredAt = sh.Status, sh.ShippedAt, sh.DeliveredAt
	r.s.state.shipments[sh.ID] = stored
	return nil
}

// ── Collaborator fakes ───────────────────────────────────────────────────────

type fakeCatalog map[int]core.Product

func (c fakeCatalog) GetProduct(_ context.Context, id int) (*core.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "product", ID: id}
	}
	return &p, nil
}

type quoteKey struct{ quoteID, productID int }

type fakeQuotes map[quoteKey]core.Cents

func (q fakeQuotes) GetQuoteLineForProduct(_ context.Context, quoteID, productID int) (*core.QuoteLine, error) {
	price, ok := q[quoteKey{quoteID, productID}]
	if !ok {
		return nil, nil
	}
	return &core.QuoteLine{QuoteID: quoteID, ProductID: productID, UnitPrice: price}, nil
}

// percentTax charges a whole-number percentage, rounding down.
type percentTax struct {
	percent int64
	err     error
}

func (t percentTax) ComputeTax(_ context.Context, taxable core.Cents, _ string) (core.Cents, error) {
	if t.err != nil {
		return 0, t.err
	}
	return core.Cents(int64(taxable) * t.percent / 100), nil
}
