package orders

import (
	"strings"
	"time"
)

type Status string

const (
	StatusNew       Status = "NEW"
	StatusApproved  Status = "APPROVED"
	StatusCutting   Status = "CUTTING"
	StatusSewing    Status = "SEWING"
	StatusFinishing Status = "FINISHING"
	StatusDone      Status = "DONE"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

var AllStatuses = []Status{
	StatusNew,
	StatusApproved,
	StatusCutting,
	StatusSewing,
	StatusFinishing,
	StatusDone,
	StatusDelivered,
	StatusCancelled,
}

func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

func (s Status) Valid() bool {
	for _, candidate := range AllStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal statuses are excluded from urgency and reminders.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type DerivedStatus string

const (
	DerivedComplete   DerivedStatus = "COMPLETE"
	DerivedCancelled  DerivedStatus = "CANCELLED"
	DerivedNoDueDate  DerivedStatus = "NO_DUE_DATE"
	DerivedDueToday   DerivedStatus = "DUE_TODAY"
	DerivedOverdue    DerivedStatus = "OVERDUE"
	DerivedDueSoon    DerivedStatus = "DUE_SOON"
	DerivedInProgress DerivedStatus = "IN_PROGRESS"
)

// DueSoonDays is the inclusive horizon for DUE_SOON.
const DueSoonDays = 3

// Urgent reports whether the status makes an order eligible for reminders and
// highlighting.
func (d DerivedStatus) Urgent() bool {
	switch d {
	case DerivedDueToday, DerivedOverdue, DerivedDueSoon:
		return true
	default:
		return false
	}
}

type Urgency string

const (
	UrgencyNone    Urgency = "none"
	UrgencyRelaxed Urgency = "relaxed"
	UrgencyWatch   Urgency = "watch"
	UrgencySoon    Urgency = "soon"
	UrgencyLate    Urgency = "late"
)

type Derivation struct {
	Status DerivedStatus
	// Stage is a cosmetic production label for IN_PROGRESS orders.
	Stage    Status
	DaysLeft *int
	Urgency  Urgency
}

// Derive maps persisted order fields to a display status. It is pure: the
// same inputs and now always give the same result.
func Derive(dueDate, actualDeliveryDate *time.Time, status Status, now time.Time) Derivation {
	switch {
	case status == StatusDelivered:
		return Derivation{Status: DerivedComplete, Urgency: UrgencyNone}
	case status == StatusCancelled:
		return Derivation{Status: DerivedCancelled, Urgency: UrgencyNone}
	case actualDeliveryDate != nil:
		return Derivation{Status: DerivedComplete, Urgency: UrgencyNone}
	case dueDate == nil:
		return Derivation{Status: DerivedNoDueDate, Urgency: UrgencyNone}
	}

	days := DaysUntil(*dueDate, now)
	d := Derivation{DaysLeft: &days, Urgency: urgencyFor(days)}
	switch {
	case days == 0:
		d.Status = DerivedDueToday
	case days < 0:
		d.Status = DerivedOverdue
	case days <= DueSoonDays:
		d.Status = DerivedDueSoon
	default:
		d.Status = DerivedInProgress
		switch status {
		case StatusCutting, StatusSewing, StatusFinishing:
			d.Stage = status
		}
	}
	return d
}

// DaysUntil is the calendar-day distance from now's date to due's date. Both
// sides are reduced to their civil date first, so time of day and DST never
// shift the result.
func DaysUntil(due, now time.Time) int {
	dy, dm, dd := due.Date()
	ny, nm, nd := now.Date()
	dueDay := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(dueDay.Sub(today).Hours() / 24)
}

func urgencyFor(days int) Urgency {
	switch {
	case days > 7:
		return UrgencyRelaxed
	case days > DueSoonDays:
		return UrgencyWatch
	case days > 0:
		return UrgencySoon
	default:
		return UrgencyLate
	}
}

// DateOnly truncates t to midnight of its civil date in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
