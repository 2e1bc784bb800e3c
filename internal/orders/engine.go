package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Options struct {
	CodePrefix    string
	CodeAttempts  int
	ImportWorkers int
	CallTimeout   time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// Engine wires the domain services over one store.
type Engine struct {
	Customers  *CustomerResolver
	Codes      *CodeGenerator
	Reconciler *Reconciler
	Bulk       *BulkStatusUpdater
	Quantities *QuantityRecorder

	store Store
	opts  Options
}

func NewEngine(store Store, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CodeAttempts < 1 {
		opts.CodeAttempts = DefaultCodeAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	customers := NewCustomerResolver(store, opts.CallTimeout)
	codes := NewCodeGenerator(store, opts.CodePrefix, opts.CallTimeout)
	return &Engine{
		Customers: customers,
		Codes:     codes,
		Reconciler: NewReconciler(customers, codes, store, ReconcilerOptions{
			Workers:      opts.ImportWorkers,
			CodeAttempts: opts.CodeAttempts,
			CallTimeout:  opts.CallTimeout,
			Now:          opts.Now,
			Logger:       opts.Logger,
		}),
		Bulk:       NewBulkStatusUpdater(store, opts.CallTimeout),
		Quantities: NewQuantityRecorder(store, opts.CallTimeout),
		store:      store,
		opts:       opts,
	}
}

func (e *Engine) Now() time.Time { return e.opts.Now() }

func (e *Engine) NextCode(ctx context.Context) (string, error) {
	return e.Codes.Generate(ctx, e.opts.Now())
}

func (e *Engine) Reminders(ctx context.Context) ([]Reminder, error) {
	callCtx, cancel := withTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	return DueReminders(callCtx, e.store, e.opts.Now())
}

// OrderDraft is a manually entered order. Code is optional; a blank code is
// generated.
type OrderDraft struct {
	Code          string
	CustomerID    uuid.UUID
	OrderDate     *time.Time
	DueDate       *time.Time
	Status        Status
	DepositAmount decimal.Decimal
	Note          string
	Items         []NewOrderItem
}

// CreateOrder validates a draft, inserts the order under a unique code and
// then its items. When the items fail the order is kept and returned along
// with the error.
func (e *Engine) CreateOrder(ctx context.Context, draft OrderDraft) (Order, int, error) {
	if draft.CustomerID == uuid.Nil {
		return Order{}, 0, &ValidationError{Field: "customerId", Message: "is required"}
	}
	status := draft.Status
	if status == "" {
		status = StatusNew
	}
	if !status.Valid() {
		return Order{}, 0, &ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}

	items := make([]NewOrderItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		item.ProductName = strings.TrimSpace(item.ProductName)
		if item.ProductName == "" || !item.Quantity.IsPositive() {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return Order{}, 0, &ValidationError{Field: "items", Message: "at least one item with a product name and positive quantity is required"}
	}

	now := e.opts.Now()
	orderDate := DateOnly(now, now.Location())
	if draft.OrderDate != nil {
		orderDate = *draft.OrderDate
	}

	order, err := CreateWithCodeRetry(ctx, e.opts.CodeAttempts, strings.TrimSpace(draft.Code),
		func(ctx context.Context) (string, error) {
			return e.Codes.Generate(ctx, e.opts.Now())
		},
		func(ctx context.Context, code string) (Order, error) {
			callCtx, cancel := withTimeout(ctx, e.opts.CallTimeout)
			defer cancel()
			return e.store.CreateOrder(callCtx, NewOrder{
				Code:          &code,
				CustomerID:    draft.CustomerID,
				OrderDate:     orderDate,
				DueDate:       draft.DueDate,
				Status:        status,
				TotalAmount:   ItemsTotal(items),
				DepositAmount: draft.DepositAmount,
				Note:          optionalString(draft.Note),
			})
		},
	)
	if err != nil {
		return Order{}, 0, err
	}

	callCtx, cancel := withTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	n, err := e.store.CreateOrderItems(callCtx, order.ID, items)
	if err != nil {
		return order, 0, fmt.Errorf("order %s created but items failed: %w", order.DisplayCode(), storageErr("create order items", err))
	}
	return order, n, nil
}
