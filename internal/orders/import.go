package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	FieldOrderKey     = "order_code"
	FieldCustomerName = "customer_name"
	FieldPhone        = "phone"
	FieldOrderDate    = "order_date"
	FieldDueDate      = "due_date"
	FieldProductName  = "product_name"
	FieldColor        = "color"
	FieldSize         = "size"
	FieldQuantity     = "quantity"
	FieldUnitPrice    = "unit_price"
)

// ImportRow is one decoded spreadsheet line. Text fields are trimmed; typed
// fields are nil when the cell was blank or failed to parse, in which case a
// FieldIssue records the raw value.
type ImportRow struct {
	Line         int
	OrderKey     string
	CustomerName string
	Phone        string
	OrderDate    *time.Time
	DueDate      *time.Time
	ProductName  string
	Color        string
	Size         string
	Quantity     *decimal.Decimal
	UnitPrice    decimal.Decimal
	Issues       []FieldIssue
}

type FieldIssue struct {
	Field    string `json:"field"`
	RawValue string `json:"rawValue"`
	Message  string `json:"message"`
}

func (r ImportRow) Issue(field string) (FieldIssue, bool) {
	for _, issue := range r.Issues {
		if issue.Field == field {
			return issue, true
		}
	}
	return FieldIssue{}, false
}

// ValidItem is the item predicate: a product name and a positive quantity.
func (r ImportRow) ValidItem() bool {
	return strings.TrimSpace(r.ProductName) != "" && r.Quantity != nil && r.Quantity.IsPositive()
}

type ImportGroup struct {
	Key  string
	Rows []ImportRow
}

// Header is the group's first row; it carries the customer and order fields.
func (g ImportGroup) Header() ImportRow {
	if len(g.Rows) == 0 {
		return ImportRow{}
	}
	return g.Rows[0]
}

func (g ImportGroup) Lines() []int {
	lines := make([]int, 0, len(g.Rows))
	for _, row := range g.Rows {
		lines = append(lines, row.Line)
	}
	return lines
}

// GroupRows partitions rows by trimmed order key, keeping first-seen order.
// Rows with a blank key are stray lines and are dropped; the second return
// value counts them.
func GroupRows(rows []ImportRow) ([]ImportGroup, int) {
	index := map[string]int{}
	groups := make([]ImportGroup, 0)
	ignored := 0
	for _, row := range rows {
		key := strings.TrimSpace(row.OrderKey)
		if key == "" {
			ignored++
			continue
		}
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, ImportGroup{Key: key})
		}
		groups[pos].Rows = append(groups[pos].Rows, row)
	}
	return groups, ignored
}

// BuildItems turns the valid rows of a group into item payloads. Invalid rows
// are dropped silently; their lines are returned for previews only.
func BuildItems(rows []ImportRow) ([]NewOrderItem, []int) {
	items := make([]NewOrderItem, 0, len(rows))
	var dropped []int
	for _, row := range rows {
		if !row.ValidItem() {
			dropped = append(dropped, row.Line)
			continue
		}
		items = append(items, NewOrderItem{
			ProductName: strings.TrimSpace(row.ProductName),
			Color:       optionalString(row.Color),
			Size:        optionalString(row.Size),
			Quantity:    *row.Quantity,
			UnitPrice:   row.UnitPrice,
		})
	}
	return items, dropped
}

type GroupPlan struct {
	Key          string          `json:"key"`
	CustomerName string          `json:"customerName"`
	Phone        string          `json:"phone,omitempty"`
	Rows         []int           `json:"rows"`
	ValidItems   int             `json:"validItems"`
	DroppedRows  []int           `json:"droppedRows,omitempty"`
	Total        decimal.Decimal `json:"total"`
	Problem      string          `json:"problem,omitempty"`
}

type ImportPlan struct {
	RowsTotal   int         `json:"rowsTotal"`
	RowsIgnored int         `json:"rowsIgnored"`
	GroupsFound int         `json:"groupsFound"`
	Groups      []GroupPlan `json:"groups"`
}

// Plan previews what Reconcile would attempt without touching the store.
func Plan(rows []ImportRow) ImportPlan {
	groups, ignored := GroupRows(rows)
	plan := ImportPlan{
		RowsTotal:   len(rows),
		RowsIgnored: ignored,
		GroupsFound: len(groups),
		Groups:      make([]GroupPlan, 0, len(groups)),
	}
	for _, group := range groups {
		header := group.Header()
		items, dropped := BuildItems(group.Rows)
		gp := GroupPlan{
			Key:          group.Key,
			CustomerName: strings.TrimSpace(header.CustomerName),
			Phone:        strings.TrimSpace(header.Phone),
			Rows:         group.Lines(),
			ValidItems:   len(items),
			DroppedRows:  dropped,
			Total:        ItemsTotal(items),
		}
		if problem := headerProblem(header); problem != "" {
			gp.Problem = problem
		} else if len(items) == 0 {
			gp.Problem = "no valid items"
		}
		plan.Groups = append(plan.Groups, gp)
	}
	return plan
}

// headerProblem returns the reason a group cannot start, or "".
func headerProblem(header ImportRow) string {
	if strings.TrimSpace(header.CustomerName) == "" {
		return "missing customer name"
	}
	for _, field := range []string{FieldOrderDate, FieldDueDate} {
		if issue, ok := header.Issue(field); ok {
			return "invalid " + field + ": " + issue.RawValue
		}
	}
	return ""
}
