package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	ID        uuid.UUID
	Name      string
	Phone     *string
	Code      *string
	Address   *string
	Note      *string
	CreatedAt time.Time
}

type NewCustomer struct {
	Name  string
	Phone *string
}

type Order struct {
	ID                 uuid.UUID
	Code               *string
	CustomerID         uuid.UUID
	OrderDate          time.Time
	DueDate            *time.Time
	ActualDeliveryDate *time.Time
	Status             Status
	TotalAmount        decimal.Decimal
	DepositAmount      decimal.Decimal
	FinalAmount        *decimal.Decimal
	Note               *string
	MainImageURL       *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DisplayCode falls back to the order id for orders created without a code.
func (o Order) DisplayCode() string {
	if o.Code != nil && *o.Code != "" {
		return *o.Code
	}
	return o.ID.String()
}

type NewOrder struct {
	Code          *string
	CustomerID    uuid.UUID
	OrderDate     time.Time
	DueDate       *time.Time
	Status        Status
	TotalAmount   decimal.Decimal
	DepositAmount decimal.Decimal
	Note          *string
}

type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductName    string
	Color          *string
	Size           *string
	Quantity       decimal.Decimal
	ActualQuantity *decimal.Decimal
	UnitPrice      decimal.Decimal
}

type NewOrderItem struct {
	ProductName string
	Color       *string
	Size        *string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

func (i NewOrderItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// OrderSummary is the read model behind list views and reminders: the order
// joined with its customer and aggregated item quantities.
type OrderSummary struct {
	Order
	CustomerName  string
	CustomerPhone *string
	PlannedQty    decimal.Decimal
	ActualQty     decimal.Decimal
}

// RemainingAmount is what the customer still owes: final amount (or total when
// no final amount was agreed) minus deposit.
func (o Order) RemainingAmount() decimal.Decimal {
	base := o.TotalAmount
	if o.FinalAmount != nil && !o.FinalAmount.IsZero() {
		base = *o.FinalAmount
	}
	return base.Sub(o.DepositAmount)
}

func ItemsTotal(items []NewOrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
