package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type BulkFailure struct {
	OrderID uuid.UUID `json:"orderId"`
	Reason  string    `json:"reason"`
}

type BulkResult struct {
	Status    Status        `json:"status"`
	Requested int           `json:"requested"`
	Updated   []uuid.UUID   `json:"updated"`
	Failed    []BulkFailure `json:"failed"`
}

type BulkStatusUpdater struct {
	store   StatusWriter
	timeout time.Duration
}

func NewBulkStatusUpdater(store StatusWriter, callTimeout time.Duration) *BulkStatusUpdater {
	return &BulkStatusUpdater{store: store, timeout: callTimeout}
}

// Apply sets target on every id as one batch update. Arguments are validated
// before any write. The batch is attempted for all ids; ids the store did not
// update are reported as failed. Delivery dates are never touched.
func (u *BulkStatusUpdater) Apply(ctx context.Context, ids []uuid.UUID, target Status) (BulkResult, error) {
	if len(ids) == 0 {
		return BulkResult{}, &PreconditionError{Message: "no orders selected"}
	}
	if target == "" {
		return BulkResult{}, &PreconditionError{Message: "target status is required"}
	}
	if !target.Valid() {
		return BulkResult{}, &PreconditionError{Message: "unknown status " + string(target)}
	}

	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return BulkResult{}, &PreconditionError{Message: "order id must not be empty"}
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	result := BulkResult{Status: target, Requested: len(unique), Updated: []uuid.UUID{}, Failed: []BulkFailure{}}

	callCtx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()
	updated, err := u.store.UpdateOrderStatus(callCtx, unique, target)
	if err != nil {
		reason := storageErr("update order status", err).Error()
		for _, id := range unique {
			result.Failed = append(result.Failed, BulkFailure{OrderID: id, Reason: reason})
		}
		return result, nil
	}

	done := make(map[uuid.UUID]struct{}, len(updated))
	for _, id := range updated {
		done[id] = struct{}{}
	}
	for _, id := range unique {
		if _, ok := done[id]; ok {
			result.Updated = append(result.Updated, id)
			continue
		}
		result.Failed = append(result.Failed, BulkFailure{OrderID: id, Reason: "order not found"})
	}
	return result, nil
}
