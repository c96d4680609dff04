package core

import "context"

// Store hides transaction begin/commit/rollback from the services.
// fn runs inside one database transaction; if it returns an error every write
// made through the Repos is rolled back.
type Store interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}

// Repos is the set of repositories bound to one transaction.
type Repos interface {
	Orders() OrderRepository
	Amendments() AmendmentRepository
	Versions() VersionRepository
	Shipments() ShipmentRepository
}

// OrderRepository reads and writes orders and their lines.
type OrderRepository interface {
	// LockOrder reads the order with an exclusive row lock held until the transaction ends.
	LockOrder(ctx context.Context, orderID int) (*Order, error)
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	ListItems(ctx context.Context, orderID int) ([]OrderItem, error)
	InsertItem(ctx context.Context, item *OrderItem) error
	UpdateItem(ctx context.Context, item *OrderItem) error
	UpdateTotals(ctx context.Context, orderID int, totals Totals) error
	SetVersionNumber(ctx context.Context, orderID, versionNumber int) error
}

// AmendmentRepository persists amendments together with their items.
type AmendmentRepository interface {
	NextSequence(ctx context.Context, orderID int) (int, error)
	Insert(ctx context.Context, a *Amendment) error
	// Lock reads the amendment and its items with a row lock on the amendment.
	Lock(ctx context.Context, amendmentID int) (*Amendment, error)
	Get(ctx context.Context, amendmentID int) (*Amendment, error)
	ListForOrder(ctx context.Context, orderID int) ([]Amendment, error)
	ListPending(ctx context.Context) ([]Amendment, error)
	// UpdateStatus persists the status and audit fields of a.
	UpdateStatus(ctx context.Context, a *Amendment) error
}

// VersionRepository appends and reads order versions.
type VersionRepository interface {
	LatestNumber(ctx context.Context, orderID int) (int, error)
	Insert(ctx context.Context, v *OrderVersion) error
	List(ctx context.Context, orderID int) ([]OrderVersion, error)
	Get(ctx context.Context, orderID, versionNumber int) (*OrderVersion, error)
}

// ShipmentRepository persists shipments and their items.
type ShipmentRepository interface {
	Insert(ctx context.Context, s *Shipment) error
	Get(ctx context.Context, shipmentID int) (*Shipment, error)
	ListForOrder(ctx context.Context, orderID int) ([]Shipment, error)
	UpdateStatus(ctx context.Context, s *Shipment) error
}
