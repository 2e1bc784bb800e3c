package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Memory is an in-process Store used by tests, the CLI preview mode and the
// server when no DATABASE_URL is configured. It enforces the same unique
// constraints as the schema.
type Memory struct {
	mu sync.RWMutex

	now       func() time.Time
	seq       int64
	customers []orders.Customer
	orders    map[uuid.UUID]*memoryOrder
	items     map[uuid.UUID][]orders.OrderItem
	runs      map[uuid.UUID]ImportRun
	audit     []InsertAuditLogParams
}

type memoryOrder struct {
	order orders.Order
	seq   int64
}

func NewMemory() *Memory {
	return &Memory{
		now:    time.Now,
		orders: make(map[uuid.UUID]*memoryOrder),
		items:  make(map[uuid.UUID][]orders.OrderItem),
		runs:   make(map[uuid.UUID]ImportRun),
	}
}

func (m *Memory) FindCustomer(ctx context.Context, name string, phone *string) (orders.Customer, error) {
	if err := ctx.Err(); err != nil {
		return orders.Customer{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.findCustomerLocked(name, phone); ok {
		return c, nil
	}
	return orders.Customer{}, fmt.Errorf("find customer: %w", orders.ErrNotFound)
}

func (m *Memory) findCustomerLocked(name string, phone *string) (orders.Customer, bool) {
	for _, c := range m.customers {
		if c.Name == name && samePhone(c.Phone, phone) {
			return c, true
		}
	}
	return orders.Customer{}, false
}

func samePhone(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *Memory) CreateCustomer(ctx context.Context, arg orders.NewCustomer) (orders.Customer, error) {
	if err := ctx.Err(); err != nil {
		return orders.Customer{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.findCustomerLocked(arg.Name, arg.Phone); ok {
		return orders.Customer{}, &orders.ConflictError{Constraint: ConstraintCustomerIdentity}
	}
	c := orders.Customer{
		ID:        uuid.New(),
		Name:      arg.Name,
		Phone:     cloneString(arg.Phone),
		CreatedAt: m.now(),
	}
	m.customers = append(m.customers, c)
	return c, nil
}

func (m *Memory) MaxCodeSequence(ctx context.Context, dateToken string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	maxSeq := 0
	for _, o := range m.orders {
		if o.order.Code == nil {
			continue
		}
		_, token, seq, ok := orders.ParseOrderCode(*o.order.Code)
		if ok && token == dateToken && seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq, nil
}

func (m *Memory) CreateOrder(ctx context.Context, arg orders.NewOrder) (orders.Order, error) {
	if err := ctx.Err(); err != nil {
		return orders.Order{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.customerExistsLocked(arg.CustomerID) {
		return orders.Order{}, &orders.ValidationError{Field: "orders_customer_id_fkey", Message: "references a missing record"}
	}
	if arg.Code != nil {
		for _, o := range m.orders {
			if o.order.Code != nil && *o.order.Code == *arg.Code {
				return orders.Order{}, &orders.ConflictError{Constraint: ConstraintOrderCode}
			}
		}
	}

	now := m.now()
	m.seq++
	order := orders.Order{
		ID:            uuid.New(),
		Code:          cloneString(arg.Code),
		CustomerID:    arg.CustomerID,
		OrderDate:     arg.OrderDate,
		DueDate:       cloneTime(arg.DueDate),
		Status:        arg.Status,
		TotalAmount:   arg.TotalAmount,
		DepositAmount: arg.DepositAmount,
		Note:          cloneString(arg.Note),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.orders[order.ID] = &memoryOrder{order: order, seq: m.seq}
	return order, nil
}

func (m *Memory) customerExistsLocked(id uuid.UUID) bool {
	for _, c := range m.customers {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (m *Memory) CreateOrderItems(ctx context.Context, orderID uuid.UUID, items []orders.NewOrderItem) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[orderID]; !ok {
		return 0, &orders.ValidationError{Field: "order_items_order_id_fkey", Message: "references a missing record"}
	}
	batch := make([]orders.OrderItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ProductName) == "" {
			return 0, &orders.ValidationError{Field: "product_name", Message: "must not be empty"}
		}
		batch = append(batch, orders.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductName: item.ProductName,
			Color:       cloneString(item.Color),
			Size:        cloneString(item.Size),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	m.items[orderID] = append(m.items[orderID], batch...)
	return len(batch), nil
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, ids []uuid.UUID, status orders.Status) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	updated := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		o, ok := m.orders[id]
		if !ok {
			continue
		}
		o.order.Status = status
		o.order.UpdatedAt = now
		updated = append(updated, id)
	}
	return updated, nil
}

func (m *Memory) UpdateItemActualQuantities(ctx context.Context, orderID uuid.UUID, updates []orders.ActualQuantityUpdate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items[orderID]
	n := 0
	for _, u := range updates {
		for i := range items {
			if items[i].ID != u.ItemID {
				continue
			}
			if u.Quantity == nil {
				items[i].ActualQuantity = nil
			} else {
				q := *u.Quantity
				items[i].ActualQuantity = &q
			}
			n++
			break
		}
	}
	return n, nil
}

func (m *Memory) ListOrderSummaries(ctx context.Context) ([]orders.OrderSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]orders.OrderSummary, 0, len(m.orders))
	for _, o := range m.sortedLocked() {
		out = append(out, m.summaryLocked(o.order))
	}
	return out, nil
}

func (m *Memory) CountCustomers(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.customers), nil
}

func (m *Memory) ListReminderCandidates(ctx context.Context, until time.Time) ([]orders.OrderSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []orders.OrderSummary
	for _, o := range m.sortedLocked() {
		ord := o.order
		if ord.ActualDeliveryDate != nil || ord.Status.Terminal() || ord.DueDate == nil {
			continue
		}
		if ord.DueDate.After(until) {
			continue
		}
		out = append(out, m.summaryLocked(ord))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(*out[j].DueDate)
	})
	return out, nil
}

func (m *Memory) GetOrder(ctx context.Context, id uuid.UUID) (orders.OrderSummary, error) {
	if err := ctx.Err(); err != nil {
		return orders.OrderSummary{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return orders.OrderSummary{}, fmt.Errorf("get order: %w", orders.ErrNotFound)
	}
	return m.summaryLocked(o.order), nil
}

func (m *Memory) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]orders.OrderItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := append([]orders.OrderItem{}, m.items[orderID]...)
	return items, nil
}

func (m *Memory) ListOrders(ctx context.Context, filter OrderFilter) (OrderPage, error) {
	if err := ctx.Err(); err != nil {
		return OrderPage{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := []orders.OrderSummary{}
	for _, o := range m.sortedLocked() {
		summary := m.summaryLocked(o.order)
		if !matchesFilter(summary, filter, search) {
			continue
		}
		matched = append(matched, summary)
	}

	limit, offset := pageBounds(filter)
	page := OrderPage{Orders: []orders.OrderSummary{}, Total: len(matched)}
	if offset >= len(matched) {
		return page, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page.Orders = matched[offset:end]
	return page, nil
}

func matchesFilter(o orders.OrderSummary, filter OrderFilter, search string) bool {
	if filter.Status != nil && o.Status != *filter.Status {
		return false
	}
	if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
		return false
	}
	if search != "" {
		code := ""
		if o.Code != nil {
			code = strings.ToLower(*o.Code)
		}
		if !strings.Contains(code, search) && !strings.Contains(strings.ToLower(o.CustomerName), search) {
			return false
		}
	}
	if filter.OrderFrom != nil && o.OrderDate.Before(*filter.OrderFrom) {
		return false
	}
	if filter.OrderTo != nil && o.OrderDate.After(*filter.OrderTo) {
		return false
	}
	if filter.DueFrom != nil && (o.DueDate == nil || o.DueDate.Before(*filter.DueFrom)) {
		return false
	}
	if filter.DueTo != nil && (o.DueDate == nil || o.DueDate.After(*filter.DueTo)) {
		return false
	}
	return true
}

func (m *Memory) ListOrdersByIDs(ctx context.Context, ids []uuid.UUID) ([]orders.OrderSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := []orders.OrderSummary{}
	for _, o := range m.sortedLocked() {
		if _, ok := wanted[o.order.ID]; ok {
			out = append(out, m.summaryLocked(o.order))
		}
	}
	return out, nil
}

func (m *Memory) CreateImportRun(ctx context.Context, arg CreateImportRunParams) (ImportRun, error) {
	if err := ctx.Err(); err != nil {
		return ImportRun{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	run := ImportRun{
		ID:         uuid.New(),
		Filename:   arg.Filename,
		FileSHA256: arg.FileSHA256,
		Mode:       arg.Mode,
		Status:     arg.Status,
		RequestID:  cloneString(arg.RequestID),
		Report:     append([]byte(nil), arg.Report...),
		CreatedAt:  m.now(),
	}
	m.runs[run.ID] = run
	return run, nil
}

func (m *Memory) GetImportRun(ctx context.Context, id uuid.UUID) (ImportRun, error) {
	if err := ctx.Err(); err != nil {
		return ImportRun{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return ImportRun{}, fmt.Errorf("get import run: %w", orders.ErrNotFound)
	}
	return run, nil
}

func (m *Memory) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, arg)
	return nil
}

// AuditLogs returns a copy of every audit entry recorded so far.
func (m *Memory) AuditLogs() []InsertAuditLogParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]InsertAuditLogParams(nil), m.audit...)
}

// UpdateOrder applies fn to a stored order. Fields the engine never writes
// (delivery date, final amount, image) are set this way by seeds and tests.
func (m *Memory) UpdateOrder(id uuid.UUID, fn func(*orders.Order)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("update order: %w", orders.ErrNotFound)
	}
	fn(&o.order)
	return nil
}

func (m *Memory) sortedLocked() []*memoryOrder {
	list := make([]*memoryOrder, 0, len(m.orders))
	for _, o := range m.orders {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.order.OrderDate.Equal(b.order.OrderDate) {
			return a.order.OrderDate.After(b.order.OrderDate)
		}
		return a.seq > b.seq
	})
	return list
}

func (m *Memory) summaryLocked(order orders.Order) orders.OrderSummary {
	summary := orders.OrderSummary{Order: order, PlannedQty: decimal.Zero, ActualQty: decimal.Zero}
	for _, c := range m.customers {
		if c.ID == order.CustomerID {
			summary.CustomerName = c.Name
			summary.CustomerPhone = cloneString(c.Phone)
			break
		}
	}
	for _, item := range m.items[order.ID] {
		summary.PlannedQty = summary.PlannedQty.Add(item.Quantity)
		if item.ActualQuantity != nil {
			summary.ActualQty = summary.ActualQty.Add(*item.ActualQuantity)
		}
	}
	return summary
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
