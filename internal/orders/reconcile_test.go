package orders_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/arden-atelier/orderdesk/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileDropsZeroQuantityItems(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()
	engine := newEngine(fs, 1)

	report := engine.Reconciler.Reconcile(ctx, []orders.ImportRow{
		row(2, "A1", "Lan", "090", "Shirt", 5, 100000),
		row(3, "A1", "Lan", "090", "Pants", 0, 50000),
	})

	require.Equal(t, 1, report.GroupsFound)
	require.Len(t, report.Outcomes, 1)
	outcome := report.Outcomes[0]
	assert.Equal(t, orders.OutcomeImported, outcome.Result)
	assert.Equal(t, "imported: A1 (1 items)", outcome.Message)
	assert.Equal(t, []int{2, 3}, outcome.Rows)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.CustomersCreated)

	require.NotNil(t, outcome.OrderID)
	items, err := fs.ListOrderItems(ctx, *outcome.OrderID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Shirt", items[0].ProductName)
	assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(5)))

	order, err := fs.GetOrder(ctx, *outcome.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusNew, order.Status)
	assert.Equal(t, "Lan", order.CustomerName)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(500000)))
	assert.Equal(t, *day(0), order.OrderDate)
}

func TestReconcileIgnoresBlankKeys(t *testing.T) {
	report := newEngine(newFaultyStore(), 1).Reconciler.Reconcile(context.Background(), []orders.ImportRow{
		row(2, "", "Lan", "090", "Shirt", 1, 1),
		row(3, "   ", "Lan", "090", "Shirt", 1, 1),
		row(4, "B7", "Hoa", "", "Dress", 2, 10),
	})
	assert.Equal(t, 3, report.RowsTotal)
	assert.Equal(t, 2, report.RowsIgnored)
	assert.Equal(t, 1, report.GroupsFound)
	assert.Equal(t, "B7", report.Outcomes[0].Key)
}

func TestReconcileSkipsGroupWithoutCustomerName(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()

	report := newEngine(fs, 1).Reconciler.Reconcile(ctx, []orders.ImportRow{
		row(2, "A1", "  ", "090", "Shirt", 5, 100),
		row(3, "A1", "Lan", "090", "Pants", 1, 100),
	})

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, orders.OutcomeSkipped, report.Outcomes[0].Result)
	assert.Equal(t, "skipped: missing customer name", report.Outcomes[0].Message)
	assert.Zero(t, fs.createCustomerCalls)
	assert.Zero(t, fs.createOrderCalls)
	assert.Zero(t, fs.itemCalls)

	page, err := fs.ListOrders(ctx, store.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestReconcileRegeneratesTakenCodes(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()
	seedOrder(ctx, fs.Memory, "A1")
	seedOrder(ctx, fs.Memory, "A2")

	report := newEngine(fs, 1).Reconciler.Reconcile(ctx, []orders.ImportRow{
		row(2, "A1", "Lan", "090", "Shirt", 1, 100),
		row(3, "A2", "Hoa", "091", "Dress", 1, 100),
	})

	require.Equal(t, 2, report.Imported)
	assert.Equal(t, "ARDEN-10032025-0001", report.Outcomes[0].Code)
	assert.Equal(t, "ARDEN-10032025-0002", report.Outcomes[1].Code)
	assert.Equal(t, "imported: ARDEN-10032025-0002 (1 items)", report.Outcomes[1].Message)
}

func TestReconcileRegeneratesSameDayCode(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()
	seedOrder(ctx, fs.Memory, "ARDEN-10032025-0001")

	report := newEngine(fs, 1).Reconciler.Reconcile(ctx, []orders.ImportRow{
		row(2, "ARDEN-10032025-0001", "Lan", "090", "Shirt", 1, 100),
	})

	require.Equal(t, 1, report.Imported)
	code := report.Outcomes[0].Code
	_, token, seq, ok := orders.ParseOrderCode(code)
	require.True(t, ok)
	assert.Equal(t, "10032025", token)
	assert.Equal(t, 2, seq)
}

func TestReconcileKeepsOrderWhenNoValidItems(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()

	report := newEngine(fs, 1).Reconciler.Reconcile(ctx, []orders.ImportRow{
		row(2, "A1", "Lan", "090", "Shirt", 0, 100),
		row(3, "A1", "Lan", "090", "", 3, 100),
	})

	outcome := report.Outcomes[0]
	assert.Equal(t, orders.OutcomeSkipped, outcome.Result)
	assert.Equal(t, "skipped: no valid items", outcome.Message)
	require.NotNil(t, outcome.OrderID)
	assert.Zero(t, fs.itemCalls)

	_, err := fs.GetOrder(ctx, *outcome.OrderID)
	require.NoError(t, err)
}

func TestReconcileReportsPartialItemFailure(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()
	fs.itemsErr = errors.New("copy aborted")

	report := newEngine(fs, 1).Reconciler.Reconcile(ctx, []orders.ImportRow{
		row(2, "A1", "Lan", "090", "Shirt", 5, 100),
	})

	outcome := report.Outcomes[0]
	assert.Equal(t, orders.OutcomePartial, outcome.Result)
	assert.Equal(t, "created order but failed items: copy aborted", outcome.Message)
	assert.Equal(t, 1, report.Partial)

	require.NotNil(t, outcome.OrderID)
	order, err := fs.GetOrder(ctx, *outcome.OrderID)
	require.NoError(t, err)
	assert.True(t, order.PlannedQty.IsZero())
}

func TestReconcileContinuesAfterGroupFailure(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()
	fs.createCustomerErr = errors.New("disk full")
	_, err := fs.Memory.CreateCustomer(ctx, orders.NewCustomer{Name: "Hoa"})
	require.NoError(t, err)

	report := newEngine(fs, 1).Reconciler.Reconcile(ctx, []orders.ImportRow{
		row(2, "A1", "Lan", "090", "Shirt", 5, 100),
		row(3, "A2", "Hoa", "", "Dress", 1, 100),
	})

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, orders.OutcomeSkipped, report.Outcomes[0].Result)
	assert.True(t, strings.HasPrefix(report.Outcomes[0].Message, "skipped: customer resolution failed: "))
	assert.Equal(t, orders.OutcomeImported, report.Outcomes[1].Result)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Imported)
	assert.Zero(t, report.CustomersCreated)
}

func TestReconcileBoundsEachStoreCall(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()
	fs.stallOrders = 1
	engine := orders.NewEngine(fs, orders.Options{
		CodePrefix:  "ARDEN",
		CallTimeout: 50 * time.Millisecond,
		Now:         fixedNow,
	})

	start := time.Now()
	report := engine.Reconciler.Reconcile(ctx, []orders.ImportRow{
		row(2, "A1", "Lan", "090", "Shirt", 1, 100),
		row(3, "A2", "Hoa", "", "Dress", 1, 100),
	})
	elapsed := time.Since(start)

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, orders.OutcomeSkipped, report.Outcomes[0].Result)
	assert.Equal(t, "skipped: order creation failed: context deadline exceeded", report.Outcomes[0].Message)
	assert.Equal(t, orders.OutcomeImported, report.Outcomes[1].Result)
	assert.Equal(t, "imported: A2 (1 items)", report.Outcomes[1].Message)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Imported)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestReconcileSkipsWhenCodesExhausted(t *testing.T) {
	fs := newFaultyStore()
	fs.createOrderErr = &orders.ConflictError{Constraint: store.ConstraintOrderCode}

	report := newEngine(fs, 1).Reconciler.Reconcile(context.Background(), []orders.ImportRow{
		row(2, "A1", "Lan", "090", "Shirt", 5, 100),
	})

	outcome := report.Outcomes[0]
	assert.Equal(t, orders.OutcomeSkipped, outcome.Result)
	assert.True(t, strings.HasPrefix(outcome.Message, "skipped: order creation failed: "))
	assert.Equal(t, orders.DefaultCodeAttempts, fs.createOrderCalls)
	assert.Zero(t, fs.itemCalls)
}

func TestReconcileSkipsInvalidHeaderDates(t *testing.T) {
	r := row(2, "A1", "Lan", "090", "Shirt", 5, 100)
	r.Issues = []orders.FieldIssue{{Field: orders.FieldDueDate, RawValue: "31/02/2025", Message: "invalid date"}}
	fs := newFaultyStore()

	report := newEngine(fs, 1).Reconciler.Reconcile(context.Background(), []orders.ImportRow{r})

	assert.Equal(t, "skipped: invalid due_date: 31/02/2025", report.Outcomes[0].Message)
	assert.Zero(t, fs.createCustomerCalls)
}

func TestReconcileWithWorkersKeepsGroupOrder(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()
	var rows []orders.ImportRow
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("K%02d", i)
		rows = append(rows,
			row(2*i+2, key, fmt.Sprintf("Customer %d", i%5), "", "Shirt", 1, 10),
			row(2*i+3, key, "", "", "Scarf", 2, 5),
		)
	}

	report := newEngine(fs, 4).Reconciler.Reconcile(ctx, rows)

	require.Equal(t, 20, report.GroupsFound)
	assert.Equal(t, 20, report.Imported)
	assert.Equal(t, 5, report.CustomersCreated)
	for i, outcome := range report.Outcomes {
		assert.Equal(t, fmt.Sprintf("K%02d", i), outcome.Key)
		assert.Equal(t, 2, outcome.Items)
	}

	page, err := fs.ListOrders(ctx, store.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 20, page.Total)
}

func TestReconcileCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs := newFaultyStore()

	report := newEngine(fs, 1).Reconciler.Reconcile(ctx, []orders.ImportRow{
		row(2, "A1", "Lan", "090", "Shirt", 5, 100),
	})

	assert.Equal(t, 1, report.Skipped)
	assert.True(t, strings.HasPrefix(report.Outcomes[0].Message, "skipped: import cancelled"))
	assert.Zero(t, fs.findCalls)
}

func TestPlanPreviewsWithoutWrites(t *testing.T) {
	plan := orders.Plan([]orders.ImportRow{
		row(2, "A1", "Lan", "090", "Shirt", 5, 100000),
		row(3, "A1", "Lan", "090", "Pants", 0, 50000),
		row(4, "", "Lan", "090", "Hat", 1, 1),
		row(5, "A2", "", "", "Dress", 1, 1),
	})

	assert.Equal(t, 4, plan.RowsTotal)
	assert.Equal(t, 1, plan.RowsIgnored)
	require.Len(t, plan.Groups, 2)
	assert.Equal(t, 1, plan.Groups[0].ValidItems)
	assert.Equal(t, []int{3}, plan.Groups[0].DroppedRows)
	assert.True(t, plan.Groups[0].Total.Equal(decimal.NewFromInt(500000)))
	assert.Empty(t, plan.Groups[0].Problem)
	assert.Equal(t, "missing customer name", plan.Groups[1].Problem)
}
