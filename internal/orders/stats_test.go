package orders_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsRow(orderDay int, due *time.Time, status orders.Status, total, planned int64) orders.OrderSummary {
	return orders.OrderSummary{
		Order: orders.Order{
			OrderDate:   *day(orderDay),
			DueDate:     due,
			Status:      status,
			TotalAmount: decimal.NewFromInt(total),
		},
		PlannedQty: decimal.NewFromInt(planned),
	}
}

func TestParsePeriod(t *testing.T) {
	for raw, want := range map[string]orders.Period{
		"":       orders.PeriodMonth,
		"today":  orders.PeriodToday,
		" Week ": orders.PeriodWeek,
		"MONTH":  orders.PeriodMonth,
		"year":   orders.PeriodYear,
	} {
		got, err := orders.ParsePeriod(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := orders.ParsePeriod("decade")
	var verr *orders.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "period", verr.Field)
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), orders.PeriodToday.Start(now))
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), orders.PeriodWeek.Start(now))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), orders.PeriodMonth.Start(now))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), orders.PeriodYear.Start(now))
}

func TestSummarizeBuckets(t *testing.T) {
	delivered := day(-1)
	list := []orders.OrderSummary{
		statsRow(0, day(-2), orders.StatusSewing, 100, 2),         // overdue
		statsRow(-1, day(0), orders.StatusNew, 50, 1),             // due today
		statsRow(-2, day(3), orders.StatusCutting, 30, 3),         // due soon, edge of horizon
		statsRow(-3, day(4), orders.StatusApproved, 20, 1),        // in progress
		statsRow(-4, nil, orders.StatusNew, 10, 1),                // no due date
		statsRow(-5, day(-7), orders.StatusDone, 5, 1),            // finished, not overdue
		statsRow(-6, day(-7), orders.StatusDelivered, 7, 1),       // complete
		statsRow(-8, day(-7), orders.StatusCancelled, 9, 1),       // cancelled, before the week
		statsRow(-40, day(-30), orders.StatusFinishing, 1000, 10), // January, still open
	}
	withDelivery := statsRow(-1, day(-3), orders.StatusFinishing, 3, 1)
	withDelivery.ActualDeliveryDate = delivered
	list = append(list, withDelivery)

	stats := orders.Summarize(list, 7, orders.PeriodWeek, testNow)

	assert.Equal(t, orders.PeriodWeek, stats.Period)
	assert.Equal(t, *day(-6), stats.From)
	assert.Equal(t, 7, stats.Customers)

	assert.Equal(t, 6, stats.ActiveOrders)
	assert.Equal(t, 2, stats.OverdueOrders)
	assert.Equal(t, 2, stats.UpcomingOrders)

	assert.Equal(t, 8, stats.Orders)
	assert.Equal(t, 2, stats.StatusCounts[orders.StatusNew])
	assert.Equal(t, 1, stats.StatusCounts[orders.StatusFinishing])
	assert.Equal(t, 1, stats.StatusCounts[orders.StatusDelivered])
	assert.Zero(t, stats.StatusCounts[orders.StatusCancelled])
	assert.Len(t, stats.StatusCounts, len(orders.AllStatuses))
	assert.Equal(t, "11", stats.TotalQuantity.String())
	assert.Equal(t, "225", stats.PeriodRevenue.String())
	assert.Equal(t, "234", stats.MonthRevenue.String())
	assert.Equal(t, "1234", stats.YearRevenue.String())
}

func TestSummarizeEmpty(t *testing.T) {
	stats := orders.Summarize(nil, 0, orders.PeriodMonth, testNow)
	assert.Zero(t, stats.Orders)
	assert.Zero(t, stats.ActiveOrders)
	assert.True(t, stats.MonthRevenue.IsZero())
	assert.Equal(t, *day(-9), stats.From)
}

func TestEngineStats(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()
	seedOrder(ctx, fs.Memory, "S1")
	seedOrder(ctx, fs.Memory, "S2")

	stats, err := newEngine(fs, 1).Stats(ctx, orders.PeriodToday)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Customers)
	assert.Equal(t, 2, stats.Orders)
	assert.Equal(t, 2, stats.StatusCounts[orders.StatusNew])
	assert.Equal(t, 2, stats.ActiveOrders)

	fs.countErr = errors.New("pool closed")
	_, err = newEngine(fs, 1).Stats(ctx, orders.PeriodToday)
	var serr *orders.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "count customers", serr.Op)
}
