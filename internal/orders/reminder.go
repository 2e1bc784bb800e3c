package orders

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reminder carries what a downstream notifier needs for one urgent order.
type Reminder struct {
	OrderID       uuid.UUID       `json:"orderId"`
	Code          string          `json:"code"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	DueDate       time.Time       `json:"dueDate"`
	DaysLeft      int             `json:"daysLeft"`
	Status        DerivedStatus   `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Deposit       decimal.Decimal `json:"deposit"`
	Remaining     decimal.Decimal `json:"remaining"`
	ImageURL      string          `json:"imageUrl,omitempty"`
}

// SelectReminders keeps the orders whose derived status is urgent, most
// pressing due date first.
func SelectReminders(candidates []OrderSummary, now time.Time) []Reminder {
	reminders := make([]Reminder, 0, len(candidates))
	for _, o := range candidates {
		d := Derive(o.DueDate, o.ActualDeliveryDate, o.Status, now)
		if !d.Status.Urgent() || d.DaysLeft == nil {
			continue
		}
		rem := Reminder{
			OrderID:      o.ID,
			Code:         o.DisplayCode(),
			CustomerName: o.CustomerName,
			DueDate:      *o.DueDate,
			DaysLeft:     *d.DaysLeft,
			Status:       d.Status,
			Total:        o.TotalAmount,
			Deposit:      o.DepositAmount,
			Remaining:    o.RemainingAmount(),
		}
		if o.CustomerPhone != nil {
			rem.CustomerPhone = *o.CustomerPhone
		}
		if o.MainImageURL != nil {
			rem.ImageURL = *o.MainImageURL
		}
		reminders = append(reminders, rem)
	}
	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].DueDate.Before(reminders[j].DueDate)
	})
	return reminders
}

// DueReminders loads candidates due within the DUE_SOON horizon, overdue ones
// included, and filters them through Derive.
func DueReminders(ctx context.Context, source ReminderSource, now time.Time) ([]Reminder, error) {
	until := DateOnly(now, now.Location()).AddDate(0, 0, DueSoonDays)
	candidates, err := source.ListReminderCandidates(ctx, until)
	if err != nil {
		return nil, storageErr("list reminder candidates", err)
	}
	return SelectReminders(candidates, now), nil
}
