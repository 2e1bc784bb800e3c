package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CustomerStore finds and inserts customers. FindCustomer matches name and
// phone exactly; a nil phone only matches customers without a phone.
type CustomerStore interface {
	FindCustomer(ctx context.Context, name string, phone *string) (Customer, error)
	CreateCustomer(ctx context.Context, params NewCustomer) (Customer, error)
}

// CodeStore reports the highest sequence already used for a DDMMYYYY token,
// or 0 when the token is unused.
type CodeStore interface {
	MaxCodeSequence(ctx context.Context, dateToken string) (int, error)
}

// OrderWriter inserts orders and item batches. CreateOrder returns a
// *ConflictError when the code is already taken. CreateOrderItems is all or
// nothing.
type OrderWriter interface {
	CreateOrder(ctx context.Context, params NewOrder) (Order, error)
	CreateOrderItems(ctx context.Context, orderID uuid.UUID, items []NewOrderItem) (int, error)
}

// StatusWriter applies one status to a set of orders and returns the ids that
// were actually updated.
type StatusWriter interface {
	UpdateOrderStatus(ctx context.Context, ids []uuid.UUID, status Status) ([]uuid.UUID, error)
}

// ReminderSource lists undelivered, non-terminal orders due on or before until.
type ReminderSource interface {
	ListReminderCandidates(ctx context.Context, until time.Time) ([]OrderSummary, error)
}

type Store interface {
	CustomerStore
	CodeStore
	OrderWriter
	StatusWriter
	ReminderSource
	ItemStore
	StatsSource
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
