package orders

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Period selects which orders count towards the period figures of Stats,
// by order date.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod accepts the four period names case-insensitively. Blank means
// month.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PeriodMonth, nil
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", &ValidationError{Field: "period", Message: "must be one of today, week, month, year"}
	}
}

// Start is the first civil date of the period containing now. A week is the
// last seven days including today.
func (p Period) Start(now time.Time) time.Time {
	today := DateOnly(now, now.Location())
	switch p {
	case PeriodToday:
		return today
	case PeriodWeek:
		return today.AddDate(0, 0, -6)
	case PeriodYear:
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
	default:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	}
}

// Stats is the dashboard summary. Orders, StatusCounts, TotalQuantity and
// PeriodRevenue cover orders dated inside the period. The workload buckets
// cover every order that is still open.
type Stats struct {
	Period         Period          `json:"period"`
	From           time.Time       `json:"from"`
	Customers      int             `json:"customers"`
	Orders         int             `json:"orders"`
	StatusCounts   map[Status]int  `json:"statusCounts"`
	TotalQuantity  decimal.Decimal `json:"totalQuantity"`
	PeriodRevenue  decimal.Decimal `json:"periodRevenue"`
	MonthRevenue   decimal.Decimal `json:"monthRevenue"`
	YearRevenue    decimal.Decimal `json:"yearRevenue"`
	ActiveOrders   int             `json:"activeOrders"`
	OverdueOrders  int             `json:"overdueOrders"`
	UpcomingOrders int             `json:"upcomingOrders"`
}

// Summarize computes Stats from order summaries. An order is open unless it
// is DONE or derives to COMPLETE or CANCELLED; open orders are then bucketed
// by their derived status, so DUE_TODAY and DUE_SOON both count as upcoming.
func Summarize(list []OrderSummary, customers int, period Period, now time.Time) Stats {
	from := period.Start(now)
	monthStart := PeriodMonth.Start(now)
	yearStart := PeriodYear.Start(now)

	stats := Stats{
		Period:        period,
		From:          from,
		Customers:     customers,
		StatusCounts:  make(map[Status]int, len(AllStatuses)),
		TotalQuantity: decimal.Zero,
		PeriodRevenue: decimal.Zero,
		MonthRevenue:  decimal.Zero,
		YearRevenue:   decimal.Zero,
	}
	for _, s := range AllStatuses {
		stats.StatusCounts[s] = 0
	}

	for _, o := range list {
		if onOrAfter(o.OrderDate, from) {
			stats.Orders++
			stats.StatusCounts[o.Status]++
			stats.TotalQuantity = stats.TotalQuantity.Add(o.PlannedQty)
			stats.PeriodRevenue = stats.PeriodRevenue.Add(o.TotalAmount)
		}
		if onOrAfter(o.OrderDate, monthStart) {
			stats.MonthRevenue = stats.MonthRevenue.Add(o.TotalAmount)
		}
		if onOrAfter(o.OrderDate, yearStart) {
			stats.YearRevenue = stats.YearRevenue.Add(o.TotalAmount)
		}

		d := Derive(o.DueDate, o.ActualDeliveryDate, o.Status, now)
		if o.Status == StatusDone || d.Status == DerivedComplete || d.Status == DerivedCancelled {
			continue
		}
		stats.ActiveOrders++
		switch d.Status {
		case DerivedOverdue:
			stats.OverdueOrders++
		case DerivedDueToday, DerivedDueSoon:
			stats.UpcomingOrders++
		}
	}
	return stats
}

func onOrAfter(t, start time.Time) bool {
	return DaysUntil(t, start) >= 0
}

// StatsSource lists every order summary and counts customers.
type StatsSource interface {
	ListOrderSummaries(ctx context.Context) ([]OrderSummary, error)
	CountCustomers(ctx context.Context) (int, error)
}

// Stats loads orders and the customer count concurrently and summarizes them
// at the engine's current time.
func (e *Engine) Stats(ctx context.Context, period Period) (Stats, error) {
	callCtx, cancel := withTimeout(ctx, e.opts.CallTimeout)
	defer cancel()

	var (
		list      []OrderSummary
		customers int
	)
	g, gctx := errgroup.WithContext(callCtx)
	g.Go(func() error {
		var err error
		list, err = e.store.ListOrderSummaries(gctx)
		return storageErr("list order summaries", err)
	})
	g.Go(func() error {
		var err error
		customers, err = e.store.CountCustomers(gctx)
		return storageErr("count customers", err)
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return Summarize(list, customers, period, e.opts.Now()), nil
}
