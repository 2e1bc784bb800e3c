package orders_test

import (
	"context"
	"sync"
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/arden-atelier/orderdesk/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func day(offset int) *time.Time {
	d := orders.DateOnly(testNow, time.UTC).AddDate(0, 0, offset)
	return &d
}

func ptr[T any](v T) *T { return &v }

func row(line int, key, name, phone, product string, qty, price int64) orders.ImportRow {
	q := decimal.NewFromInt(qty)
	return orders.ImportRow{
		Line:         line,
		OrderKey:     key,
		CustomerName: name,
		Phone:        phone,
		ProductName:  product,
		Quantity:     &q,
		UnitPrice:    decimal.NewFromInt(price),
	}
}

// faultyStore wraps the in-memory store with injectable failures and call
// counters.
type faultyStore struct {
	*store.Memory

	mu                  sync.Mutex
	findErr             error
	createCustomerErr   error
	createOrderErr      error
	itemsErr            error
	updateErr           error
	quantityErr         error
	countErr            error
	hideCustomers       int
	stallOrders         int
	findCalls           int
	createCustomerCalls int
	createOrderCalls    int
	itemCalls           int
	updateCalls         int
	quantityCalls       int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Memory: store.NewMemory()}
}

func (f *faultyStore) FindCustomer(ctx context.Context, name string, phone *string) (orders.Customer, error) {
	f.mu.Lock()
	f.findCalls++
	err := f.findErr
	hide := f.hideCustomers > 0
	if hide {
		f.hideCustomers--
	}
	f.mu.Unlock()
	if err != nil {
		return orders.Customer{}, err
	}
	if hide {
		return orders.Customer{}, orders.ErrNotFound
	}
	return f.Memory.FindCustomer(ctx, name, phone)
}

func (f *faultyStore) CreateCustomer(ctx context.Context, arg orders.NewCustomer) (orders.Customer, error) {
	f.mu.Lock()
	f.createCustomerCalls++
	err := f.createCustomerErr
	f.mu.Unlock()
	if err != nil {
		return orders.Customer{}, err
	}
	return f.Memory.CreateCustomer(ctx, arg)
}

func (f *faultyStore) CreateOrder(ctx context.Context, arg orders.NewOrder) (orders.Order, error) {
	f.mu.Lock()
	f.createOrderCalls++
	err := f.createOrderErr
	stall := f.stallOrders > 0
	if stall {
		f.stallOrders--
	}
	f.mu.Unlock()
	if stall {
		<-ctx.Done()
		return orders.Order{}, ctx.Err()
	}
	if err != nil {
		return orders.Order{}, err
	}
	return f.Memory.CreateOrder(ctx, arg)
}

func (f *faultyStore) CreateOrderItems(ctx context.Context, orderID uuid.UUID, items []orders.NewOrderItem) (int, error) {
	f.mu.Lock()
	f.itemCalls++
	err := f.itemsErr
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.Memory.CreateOrderItems(ctx, orderID, items)
}

func (f *faultyStore) UpdateOrderStatus(ctx context.Context, ids []uuid.UUID, status orders.Status) ([]uuid.UUID, error) {
	f.mu.Lock()
	f.updateCalls++
	err := f.updateErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Memory.UpdateOrderStatus(ctx, ids, status)
}

func (f *faultyStore) UpdateItemActualQuantities(ctx context.Context, orderID uuid.UUID, updates []orders.ActualQuantityUpdate) (int, error) {
	f.mu.Lock()
	f.quantityCalls++
	err := f.quantityErr
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.Memory.UpdateItemActualQuantities(ctx, orderID, updates)
}

func (f *faultyStore) CountCustomers(ctx context.Context) (int, error) {
	f.mu.Lock()
	err := f.countErr
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.Memory.CountCustomers(ctx)
}

func newEngine(s orders.Store, workers int) *orders.Engine {
	return orders.NewEngine(s, orders.Options{
		CodePrefix:    "ARDEN",
		ImportWorkers: workers,
		CallTimeout:   time.Second,
		Now:           fixedNow,
	})
}

func seedOrder(ctx context.Context, m *store.Memory, code string) orders.Order {
	c, err := m.FindCustomer(ctx, "Seed", nil)
	if err != nil {
		c, err = m.CreateCustomer(ctx, orders.NewCustomer{Name: "Seed"})
		if err != nil {
			panic(err)
		}
	}
	var codePtr *string
	if code != "" {
		codePtr = &code
	}
	o, err := m.CreateOrder(ctx, orders.NewOrder{
		Code:       codePtr,
		CustomerID: c.ID,
		OrderDate:  *day(0),
		Status:     orders.StatusNew,
	})
	if err != nil {
		panic(err)
	}
	return o
}
