package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type OutcomeResult string

const (
	OutcomeImported OutcomeResult = "imported"
	OutcomeSkipped  OutcomeResult = "skipped"
	OutcomePartial  OutcomeResult = "partial"
)

type GroupOutcome struct {
	Key             string        `json:"key"`
	Result          OutcomeResult `json:"result"`
	Message         string        `json:"message"`
	Reason          string        `json:"reason,omitempty"`
	Code            string        `json:"code,omitempty"`
	OrderID         *uuid.UUID    `json:"orderId,omitempty"`
	CustomerID      *uuid.UUID    `json:"customerId,omitempty"`
	CustomerCreated bool          `json:"customerCreated"`
	Items           int           `json:"items"`
	Rows            []int         `json:"rows"`
}

type ImportReport struct {
	RowsTotal        int            `json:"rowsTotal"`
	RowsIgnored      int            `json:"rowsIgnored"`
	GroupsFound      int            `json:"groupsFound"`
	Imported         int            `json:"imported"`
	Skipped          int            `json:"skipped"`
	Partial          int            `json:"partial"`
	CustomersCreated int            `json:"customersCreated"`
	Outcomes         []GroupOutcome `json:"outcomes"`
}

// Lines renders one human-readable line per group, in processing order.
func (r ImportReport) Lines() []string {
	lines := make([]string, 0, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		lines = append(lines, outcome.Message)
	}
	return lines
}

type ReconcilerOptions struct {
	// Workers above 1 process groups concurrently.
	Workers      int
	CodeAttempts int
	CallTimeout  time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

type Reconciler struct {
	customers *CustomerResolver
	codes     *CodeGenerator
	orders    OrderWriter
	opts      ReconcilerOptions
}

func NewReconciler(customers *CustomerResolver, codes *CodeGenerator, orders OrderWriter, opts ReconcilerOptions) *Reconciler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.CodeAttempts < 1 {
		opts.CodeAttempts = DefaultCodeAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reconciler{customers: customers, codes: codes, orders: orders, opts: opts}
}

// Reconcile imports every group it can and reports one outcome per group. It
// never fails as a whole: a group's failure is recorded and the next group
// proceeds, and nothing already written for a failed group is undone.
func (r *Reconciler) Reconcile(ctx context.Context, rows []ImportRow) ImportReport {
	groups, ignored := GroupRows(rows)
	outcomes := make([]GroupOutcome, len(groups))

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, group := range groups {
		g.Go(func() error {
			outcomes[i] = r.reconcileGroup(ctx, group)
			return nil
		})
	}
	_ = g.Wait()

	report := ImportReport{
		RowsTotal:   len(rows),
		RowsIgnored: ignored,
		GroupsFound: len(groups),
		Outcomes:    outcomes,
	}
	for _, outcome := range outcomes {
		switch outcome.Result {
		case OutcomeImported:
			report.Imported++
		case OutcomePartial:
			report.Partial++
		default:
			report.Skipped++
		}
		if outcome.CustomerCreated {
			report.CustomersCreated++
		}
	}
	return report
}

func (r *Reconciler) reconcileGroup(ctx context.Context, group ImportGroup) GroupOutcome {
	out := GroupOutcome{Key: group.Key, Result: OutcomeSkipped, Rows: group.Lines()}
	defer func() {
		r.opts.Logger.Info("import_group",
			"key", out.Key,
			"result", out.Result,
			"code", out.Code,
			"items", out.Items,
			"message", out.Message,
		)
	}()

	if err := ctx.Err(); err != nil {
		out.skip("import cancelled", err)
		return out
	}

	header := group.Header()
	if problem := headerProblem(header); problem != "" {
		out.skip(problem, nil)
		return out
	}

	customerID, created, err := r.customers.Resolve(ctx, header.CustomerName, header.Phone)
	if err != nil {
		out.skip("customer resolution failed", err)
		return out
	}
	out.CustomerID = &customerID
	out.CustomerCreated = created

	items, _ := BuildItems(group.Rows)
	today := r.opts.Now()
	orderDate := DateOnly(today, today.Location())
	if header.OrderDate != nil {
		orderDate = *header.OrderDate
	}

	order, err := CreateWithCodeRetry(ctx, r.opts.CodeAttempts, group.Key,
		func(ctx context.Context) (string, error) {
			return r.codes.Generate(ctx, r.opts.Now())
		},
		func(ctx context.Context, code string) (Order, error) {
			callCtx, cancel := withTimeout(ctx, r.opts.CallTimeout)
			defer cancel()
			return r.orders.CreateOrder(callCtx, NewOrder{
				Code:        &code,
				CustomerID:  customerID,
				OrderDate:   orderDate,
				DueDate:     header.DueDate,
				Status:      StatusNew,
				TotalAmount: ItemsTotal(items),
			})
		},
	)
	if err != nil {
		out.skip("order creation failed", err)
		return out
	}
	orderID := order.ID
	out.OrderID = &orderID
	out.Code = order.DisplayCode()

	if len(items) == 0 {
		out.skip("no valid items", nil)
		return out
	}

	callCtx, cancel := withTimeout(ctx, r.opts.CallTimeout)
	_, err = r.orders.CreateOrderItems(callCtx, order.ID, items)
	cancel()
	if err != nil {
		out.Result = OutcomePartial
		out.Reason = err.Error()
		out.Message = "created order but failed items: " + out.Reason
		return out
	}

	out.Result = OutcomeImported
	out.Items = len(items)
	out.Message = fmt.Sprintf("imported: %s (%d items)", out.Code, out.Items)
	return out
}

func (o *GroupOutcome) skip(reason string, err error) {
	o.Result = OutcomeSkipped
	o.Message = "skipped: " + reason
	if err != nil {
		o.Reason = err.Error()
		o.Message += ": " + o.Reason
	}
}
