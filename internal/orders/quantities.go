package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActualQuantityUpdate sets the produced quantity of one order item. A nil
// Quantity clears it.
type ActualQuantityUpdate struct {
	ItemID   uuid.UUID
	Quantity *decimal.Decimal
}

// ItemStore reads the items of an order and records produced quantities.
// UpdateItemActualQuantities only touches items that belong to orderID and
// returns how many rows it changed.
type ItemStore interface {
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
	UpdateItemActualQuantities(ctx context.Context, orderID uuid.UUID, updates []ActualQuantityUpdate) (int, error)
}

type QuantityRecorder struct {
	store   ItemStore
	timeout time.Duration
}

func NewQuantityRecorder(store ItemStore, callTimeout time.Duration) *QuantityRecorder {
	return &QuantityRecorder{store: store, timeout: callTimeout}
}

// Record validates every update against the order's current items before
// writing any of them, then returns the refreshed items.
func (q *QuantityRecorder) Record(ctx context.Context, orderID uuid.UUID, updates []ActualQuantityUpdate) ([]OrderItem, error) {
	if orderID == uuid.Nil {
		return nil, &ValidationError{Field: "orderId", Message: "must not be empty"}
	}
	if len(updates) == 0 {
		return nil, &PreconditionError{Message: "no items given"}
	}

	items, err := q.listItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]OrderItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	seen := make(map[uuid.UUID]struct{}, len(updates))
	for _, u := range updates {
		item, ok := byID[u.ItemID]
		if !ok {
			return nil, &ValidationError{Field: "itemId", Message: fmt.Sprintf("item %s does not belong to this order", u.ItemID)}
		}
		if _, dup := seen[u.ItemID]; dup {
			return nil, &ValidationError{Field: "itemId", Message: fmt.Sprintf("item %s is listed more than once", u.ItemID)}
		}
		seen[u.ItemID] = struct{}{}
		if u.Quantity != nil && u.Quantity.IsNegative() {
			return nil, &ValidationError{Field: "actualQuantity", Message: fmt.Sprintf("invalid actual quantity for %s", item.ProductName)}
		}
	}

	callCtx, cancel := withTimeout(ctx, q.timeout)
	_, err = q.store.UpdateItemActualQuantities(callCtx, orderID, updates)
	cancel()
	if err != nil {
		return nil, storageErr("update actual quantities", err)
	}
	return q.listItems(ctx, orderID)
}

func (q *QuantityRecorder) listItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	callCtx, cancel := withTimeout(ctx, q.timeout)
	defer cancel()
	items, err := q.store.ListOrderItems(callCtx, orderID)
	if err != nil {
		return nil, storageErr("list order items", err)
	}
	return items, nil
}
