package core

import (
	"context"
	"sort"
	"time"
)

// VersionLedger snapshots orders into append-only versions and compares them.
type VersionLedger struct {
	store Store
}

// NewVersionLedger constructs a VersionLedger over store.
func NewVersionLedger(store Store) *VersionLedger {
	return &VersionLedger{store: store}
}

// SnapshotTx appends the next version of the order inside the caller's
// transaction. The caller is expected to hold the order row lock.
func (l *VersionLedger) SnapshotTx(ctx context.Context, r Repos, orderID, userID int, summary string) (*OrderVersion, error) {
	order, err := r.Orders().GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := r.Orders().ListItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	latest, err := r.Versions().LatestNumber(ctx, orderID)
	if err != nil {
		return nil, err
	}

	v := &OrderVersion{
		OrderID:       orderID,
		VersionNumber: latest + 1,
		Totals:        order.Totals(),
		Items:         snapshotItems(items),
		ChangeSummary: summary,
		CreatedBy:     userID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.Versions().Insert(ctx, v); err != nil {
		return nil, err
	}
	if err := r.Orders().SetVersionNumber(ctx, orderID, v.VersionNumber); err != nil {
		return nil, err
	}
	return v, nil
}

// Snapshot locks the order and appends a version in its own transaction.
func (l *VersionLedger) Snapshot(ctx context.Context, orderID, userID int, summary string) (*OrderVersion, error) {
	var v *OrderVersion
	err := l.store.WithinTx(ctx, func(r Repos) error {
		if _, err := r.Orders().LockOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		v, err = l.SnapshotTx(ctx, r, orderID, userID, summary)
		return err
	})
	if err != nil {
		return nil, classify("snapshot order", err)
	}
	return v, nil
}

// ListVersions returns the versions of an order, newest first.
func (l *VersionLedger) ListVersions(ctx context.Context, orderID int) ([]OrderVersion, error) {
	var versions []OrderVersion
	err := l.store.WithinTx(ctx, func(r Repos) error {
		if _, err := r.Orders().GetOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		versions, err = r.Versions().List(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, classify("list versions", err)
	}
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].VersionNumber > versions[j].VersionNumber
	})
	return versions, nil
}

// GetVersion returns one version of an order.
func (l *VersionLedger) GetVersion(ctx context.Context, orderID, versionNumber int) (*OrderVersion, error) {
	var v *OrderVersion
	err := l.store.WithinTx(ctx, func(r Repos) error {
		var err error
		v, err = r.Versions().Get(ctx, orderID, versionNumber)
		return err
	})
	if err != nil {
		return nil, classify("get version", err)
	}
	return v, nil
}

// Diff loads two versions of an order and compares them.
func (l *VersionLedger) Diff(ctx context.Context, orderID, fromVersion, toVersion int) (*VersionDiff, error) {
	var from, to *OrderVersion
	err := l.store.WithinTx(ctx, func(r Repos) error {
		var err error
		if from, err = r.Versions().Get(ctx, orderID, fromVersion); err != nil {
			return err
		}
		to, err = r.Versions().Get(ctx, orderID, toVersion)
		return err
	})
	if err != nil {
		return nil, classify("diff versions", err)
	}
	return DiffVersions(from, to), nil
}

// DiffVersions classifies every product as added, removed or modified between
// two snapshots. Unchanged products are omitted.
func DiffVersions(from, to *OrderVersion) *VersionDiff {
	fromIdx := indexSnapshot(from.Items)
	toIdx := indexSnapshot(to.Items)

	d := &VersionDiff{
		OrderID:         from.OrderID,
		From:            VersionSide{VersionNumber: from.VersionNumber, Totals: from.Totals, ItemCount: len(from.Items)},
		To:              VersionSide{VersionNumber: to.VersionNumber, Totals: to.Totals, ItemCount: len(to.Items)},
		Changes:         []ItemDiff{},
		TotalDifference: to.Totals.Total - from.Totals.Total,
	}

	for pid, t := range toIdx {
		t := t
		f, ok := fromIdx[pid]
		switch {
		case !ok:
			d.Changes = append(d.Changes, ItemDiff{ProductID: pid, Name: t.Name, Kind: DiffAdded, To: &t})
		case f.Quantity != t.Quantity || f.UnitPrice != t.UnitPrice:
			f := f
			d.Changes = append(d.Changes, ItemDiff{ProductID: pid, Name: t.Name, Kind: DiffModified, From: &f, To: &t})
		}
	}
	for pid, f := range fromIdx {
		f := f
		if _, ok := toIdx[pid]; !ok {
			d.Changes = append(d.Changes, ItemDiff{ProductID: pid, Name: f.Name, Kind: DiffRemoved, From: &f})
		}
	}

	sort.Slice(d.Changes, func(i, j int) bool { return d.Changes[i].ProductID < d.Changes[j].ProductID })
	return d
}

func indexSnapshot(items []SnapshotItem) map[int]SnapshotItem {
	idx := make(map[int]SnapshotItem, len(items))
	for _, it := range items {
		idx[it.ProductID] = it
	}
	return idx
}

// snapshotItems captures the active lines of an order.
func snapshotItems(items []OrderItem) []SnapshotItem {
	out := make([]SnapshotItem, 0, len(items))
	for _, it := range items {
		if !it.Active() {
			continue
		}
		out = append(out, SnapshotItem{
			ProductID: it.ProductID,
			Quantity:  it.ActiveQuantity(),
			UnitPrice: it.PriceAtOrder,
			Name:      it.ProductName,
		})
	}
	return out
}
