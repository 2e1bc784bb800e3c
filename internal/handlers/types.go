package handlers

import (
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/shopspring/decimal"
)

type Order struct {
	Id                 openapi_types.UUID   `json:"id"`
	Code               *string              `json:"code,omitempty"`
	CustomerId         openapi_types.UUID   `json:"customerId"`
	CustomerName       string               `json:"customerName"`
	CustomerPhone      *string              `json:"customerPhone,omitempty"`
	OrderDate          openapi_types.Date   `json:"orderDate"`
	DueDate            *openapi_types.Date  `json:"dueDate,omitempty"`
	ActualDeliveryDate *openapi_types.Date  `json:"actualDeliveryDate,omitempty"`
	Status             orders.Status        `json:"status"`
	DerivedStatus      orders.DerivedStatus `json:"derivedStatus"`
	Stage              *orders.Status       `json:"stage,omitempty"`
	DaysLeft           *int                 `json:"daysLeft,omitempty"`
	Urgency            orders.Urgency       `json:"urgency"`
	TotalAmount        decimal.Decimal      `json:"totalAmount"`
	DepositAmount      decimal.Decimal      `json:"depositAmount"`
	FinalAmount        *decimal.Decimal     `json:"finalAmount,omitempty"`
	RemainingAmount    decimal.Decimal      `json:"remainingAmount"`
	PlannedQuantity    decimal.Decimal      `json:"plannedQuantity"`
	ActualQuantity     decimal.Decimal      `json:"actualQuantity"`
	Note               *string              `json:"note,omitempty"`
	MainImageUrl       *string              `json:"mainImageUrl,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
	Items              []OrderItem          `json:"items,omitempty"`
}

type OrderItem struct {
	Id             openapi_types.UUID `json:"id"`
	ProductName    string             `json:"productName"`
	Color          *string            `json:"color,omitempty"`
	Size           *string            `json:"size,omitempty"`
	Quantity       decimal.Decimal    `json:"quantity"`
	ActualQuantity *decimal.Decimal   `json:"actualQuantity,omitempty"`
	UnitPrice      decimal.Decimal    `json:"unitPrice"`
	LineTotal      decimal.Decimal    `json:"lineTotal"`
}

type OrderList struct {
	Items    []Order `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

type GetOrdersParams struct {
	Status     *orders.Status      `form:"status" json:"status,omitempty"`
	CustomerId *openapi_types.UUID `form:"customerId" json:"customerId,omitempty"`
	Q          *string             `form:"q" json:"q,omitempty"`
	OrderFrom  *openapi_types.Date `form:"orderFrom" json:"orderFrom,omitempty"`
	OrderTo    *openapi_types.Date `form:"orderTo" json:"orderTo,omitempty"`
	DueFrom    *openapi_types.Date `form:"dueFrom" json:"dueFrom,omitempty"`
	DueTo      *openapi_types.Date `form:"dueTo" json:"dueTo,omitempty"`
	Page       *int                `form:"page" json:"page,omitempty"`
	PageSize   *int                `form:"pageSize" json:"pageSize,omitempty"`
}

type CreateOrderItemRequest struct {
	ProductName string          `json:"productName"`
	Color       *string         `json:"color,omitempty"`
	Size        *string         `json:"size,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type CreateOrderRequest struct {
	Code          *string                  `json:"code,omitempty"`
	CustomerId    openapi_types.UUID       `json:"customerId"`
	OrderDate     *openapi_types.Date      `json:"orderDate,omitempty"`
	DueDate       *openapi_types.Date      `json:"dueDate,omitempty"`
	Status        *orders.Status           `json:"status,omitempty"`
	DepositAmount *decimal.Decimal         `json:"depositAmount,omitempty"`
	Note          *string                  `json:"note,omitempty"`
	Items         []CreateOrderItemRequest `json:"items"`
}

type CreateOrderResponse struct {
	Order      Order `json:"order"`
	ItemsAdded int   `json:"itemsAdded"`
}

type NextCodeResponse struct {
	Code string `json:"code"`
}

type BulkStatusRequest struct {
	OrderIds []openapi_types.UUID `json:"orderIds"`
	Status   orders.Status        `json:"status"`
}

type ExportRequest struct {
	OrderIds []openapi_types.UUID `json:"orderIds"`
	Format   *string              `json:"format,omitempty"`
}

type ActualQuantityItem struct {
	ItemId         openapi_types.UUID `json:"itemId"`
	ActualQuantity *decimal.Decimal   `json:"actualQuantity"`
}

type ActualQuantitiesRequest struct {
	Items []ActualQuantityItem `json:"items"`
}

type GetStatsParams struct {
	Period *string `form:"period" json:"period,omitempty"`
}

type StatsResponse struct {
	Period         orders.Period         `json:"period"`
	From           openapi_types.Date    `json:"from"`
	Customers      int                   `json:"customers"`
	Orders         int                   `json:"orders"`
	StatusCounts   map[orders.Status]int `json:"statusCounts"`
	TotalQuantity  decimal.Decimal       `json:"totalQuantity"`
	PeriodRevenue  decimal.Decimal       `json:"periodRevenue"`
	MonthRevenue   decimal.Decimal       `json:"monthRevenue"`
	YearRevenue    decimal.Decimal       `json:"yearRevenue"`
	ActiveOrders   int                   `json:"activeOrders"`
	OverdueOrders  int                   `json:"overdueOrders"`
	UpcomingOrders int                   `json:"upcomingOrders"`
}

type ImportRunResponse struct {
	Id         openapi_types.UUID `json:"id"`
	Filename   string             `json:"filename"`
	FileSha256 string             `json:"fileSha256"`
	Mode       string             `json:"mode"`
	Status     string             `json:"status"`
	CreatedAt  time.Time          `json:"createdAt"`
	Report     any                `json:"report"`
	Lines      []string           `json:"lines,omitempty"`
	RequestId  string             `json:"requestId"`
}

type ReminderList struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Reminders   []orders.Reminder `json:"reminders"`
}

func dateOf(t time.Time) openapi_types.Date {
	return openapi_types.Date{Time: t}
}

func datePtr(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	d := dateOf(*t)
	return &d
}

func timePtr(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func mapOrder(o orders.OrderSummary, now time.Time) Order {
	d := orders.Derive(o.DueDate, o.ActualDeliveryDate, o.Status, now)
	out := Order{
		Id:                 o.ID,
		Code:               o.Code,
		CustomerId:         o.CustomerID,
		CustomerName:       o.CustomerName,
		CustomerPhone:      o.CustomerPhone,
		OrderDate:          dateOf(o.OrderDate),
		DueDate:            datePtr(o.DueDate),
		ActualDeliveryDate: datePtr(o.ActualDeliveryDate),
		Status:             o.Status,
		DerivedStatus:      d.Status,
		DaysLeft:           d.DaysLeft,
		Urgency:            d.Urgency,
		TotalAmount:        o.TotalAmount,
		DepositAmount:      o.DepositAmount,
		FinalAmount:        o.FinalAmount,
		RemainingAmount:    o.RemainingAmount(),
		PlannedQuantity:    o.PlannedQty,
		ActualQuantity:     o.ActualQty,
		Note:               o.Note,
		MainImageUrl:       o.MainImageURL,
		CreatedAt:          o.CreatedAt.UTC(),
		UpdatedAt:          o.UpdatedAt.UTC(),
	}
	if d.Stage != "" {
		stage := d.Stage
		out.Stage = &stage
	}
	return out
}

func mapOrderItems(items []orders.OrderItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItem{
			Id:             item.ID,
			ProductName:    item.ProductName,
			Color:          item.Color,
			Size:           item.Size,
			Quantity:       item.Quantity,
			ActualQuantity: item.ActualQuantity,
			UnitPrice:      item.UnitPrice,
			LineTotal:      item.Quantity.Mul(item.UnitPrice),
		})
	}
	return out
}

func mapStats(st orders.Stats) StatsResponse {
	return StatsResponse{
		Period:         st.Period,
		From:           dateOf(st.From),
		Customers:      st.Customers,
		Orders:         st.Orders,
		StatusCounts:   st.StatusCounts,
		TotalQuantity:  st.TotalQuantity,
		PeriodRevenue:  st.PeriodRevenue,
		MonthRevenue:   st.MonthRevenue,
		YearRevenue:    st.YearRevenue,
		ActiveOrders:   st.ActiveOrders,
		OverdueOrders:  st.OverdueOrders,
		UpcomingOrders: st.UpcomingOrders,
	}
}
