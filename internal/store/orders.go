package store

import (
	"context"
	"fmt"
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `o.id, o.code, o.customer_id, o.order_date, o.due_date, o.actual_delivery_date,
  o.status, o.total_amount, o.deposit_amount, o.final_amount, o.note, o.main_image_url,
  o.created_at, o.updated_at`

const summaryColumns = orderColumns + `,
  c.name, c.phone,
  COALESCE(SUM(i.quantity), 0) AS planned_qty,
  COALESCE(SUM(i.actual_quantity), 0) AS actual_qty`

const summaryFrom = `
FROM orders o
JOIN customers c ON c.id = o.customer_id
LEFT JOIN order_items i ON i.order_id = o.id`

type orderRow struct {
	order   orders.Order
	status  string
	total   pgtype.Numeric
	deposit pgtype.Numeric
	final   pgtype.Numeric
}

func (r *orderRow) dest() []any {
	return []any{
		&r.order.ID,
		&r.order.Code,
		&r.order.CustomerID,
		&r.order.OrderDate,
		&r.order.DueDate,
		&r.order.ActualDeliveryDate,
		&r.status,
		&r.total,
		&r.deposit,
		&r.final,
		&r.order.Note,
		&r.order.MainImageURL,
		&r.order.CreatedAt,
		&r.order.UpdatedAt,
	}
}

func (r *orderRow) finish() orders.Order {
	r.order.Status = orders.Status(r.status)
	r.order.TotalAmount = fromNumeric(r.total)
	r.order.DepositAmount = fromNumeric(r.deposit)
	r.order.FinalAmount = fromNullableNumeric(r.final)
	return r.order
}

type summaryRow struct {
	orderRow
	customerName  string
	customerPhone *string
	planned       pgtype.Numeric
	actual        pgtype.Numeric
}

func (r *summaryRow) dest() []any {
	return append(r.orderRow.dest(), &r.customerName, &r.customerPhone, &r.planned, &r.actual)
}

func (r *summaryRow) finish() orders.OrderSummary {
	return orders.OrderSummary{
		Order:         r.orderRow.finish(),
		CustomerName:  r.customerName,
		CustomerPhone: r.customerPhone,
		PlannedQty:    fromNumeric(r.planned),
		ActualQty:     fromNumeric(r.actual),
	}
}

func collectSummaries(rows pgx.Rows) ([]orders.OrderSummary, error) {
	defer rows.Close()
	items := []orders.OrderSummary{}
	for rows.Next() {
		var r summaryRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, err
		}
		items = append(items, r.finish())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const maxCodeSequence = `
SELECT COALESCE(MAX((substring(code FROM $1))::int), 0)
FROM orders
WHERE code ~ $1
`

func (q *Queries) MaxCodeSequence(ctx context.Context, dateToken string) (int, error) {
	var seq int
	pattern := fmt.Sprintf("-%s-([0-9]{1,%d})$", dateToken, orders.MaxSequenceDigits)
	if err := q.db.QueryRow(ctx, maxCodeSequence, pattern).Scan(&seq); err != nil {
		return 0, wrap("max code sequence", err)
	}
	return seq, nil
}

const createOrder = `
INSERT INTO orders (code, customer_id, order_date, due_date, status, total_amount, deposit_amount, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, code, customer_id, order_date, due_date, actual_delivery_date,
  status, total_amount, deposit_amount, final_amount, note, main_image_url,
  created_at, updated_at
`

func (q *Queries) CreateOrder(ctx context.Context, arg orders.NewOrder) (orders.Order, error) {
	var r orderRow
	err := q.db.QueryRow(ctx, createOrder,
		arg.Code,
		arg.CustomerID,
		arg.OrderDate,
		arg.DueDate,
		string(arg.Status),
		numeric(arg.TotalAmount),
		numeric(arg.DepositAmount),
		arg.Note,
	).Scan(r.dest()...)
	if err != nil {
		return orders.Order{}, wrap("create order", err)
	}
	return r.finish(), nil
}

// CreateOrderItems copies the batch in one COPY statement, which either
// loads every row or none.
func (q *Queries) CreateOrderItems(ctx context.Context, orderID uuid.UUID, items []orders.NewOrderItem) (int, error) {
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, []any{
			orderID,
			item.ProductName,
			item.Color,
			item.Size,
			numeric(item.Quantity),
			numeric(item.UnitPrice),
		})
	}
	n, err := q.db.CopyFrom(ctx,
		pgx.Identifier{"order_items"},
		[]string{"order_id", "product_name", "color", "size", "quantity", "unit_price"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, wrap("create order items", err)
	}
	return int(n), nil
}

const updateOrderStatus = `
UPDATE orders
SET status = $1, updated_at = now()
WHERE id = ANY($2::uuid[])
RETURNING id
`

func (q *Queries) UpdateOrderStatus(ctx context.Context, ids []uuid.UUID, status orders.Status) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, updateOrderStatus, string(status), ids)
	if err != nil {
		return nil, wrap("update order status", err)
	}
	defer rows.Close()

	updated := make([]uuid.UUID, 0, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("update order status", err)
		}
		updated = append(updated, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("update order status", err)
	}
	return updated, nil
}

const listReminderCandidates = `
SELECT ` + summaryColumns + summaryFrom + `
WHERE o.actual_delivery_date IS NULL
  AND o.status NOT IN ('DELIVERED', 'CANCELLED')
  AND o.due_date IS NOT NULL
  AND o.due_date <= $1
GROUP BY o.id, c.id
ORDER BY o.due_date, o.created_at
`

func (q *Queries) ListReminderCandidates(ctx context.Context, until time.Time) ([]orders.OrderSummary, error) {
	rows, err := q.db.Query(ctx, listReminderCandidates, until)
	if err != nil {
		return nil, wrap("list reminder candidates", err)
	}
	items, err := collectSummaries(rows)
	if err != nil {
		return nil, wrap("list reminder candidates", err)
	}
	return items, nil
}

const getOrder = `
SELECT ` + summaryColumns + summaryFrom + `
WHERE o.id = $1
GROUP BY o.id, c.id
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (orders.OrderSummary, error) {
	var r summaryRow
	if err := q.db.QueryRow(ctx, getOrder, id).Scan(r.dest()...); err != nil {
		return orders.OrderSummary{}, wrap("get order", err)
	}
	return r.finish(), nil
}

const listOrdersByIDs = `
SELECT ` + summaryColumns + summaryFrom + `
WHERE o.id = ANY($1::uuid[])
GROUP BY o.id, c.id
ORDER BY o.order_date DESC, o.created_at DESC
`

func (q *Queries) ListOrdersByIDs(ctx context.Context, ids []uuid.UUID) ([]orders.OrderSummary, error) {
	rows, err := q.db.Query(ctx, listOrdersByIDs, ids)
	if err != nil {
		return nil, wrap("list orders by ids", err)
	}
	items, err := collectSummaries(rows)
	if err != nil {
		return nil, wrap("list orders by ids", err)
	}
	return items, nil
}

const listOrders = `
SELECT ` + summaryColumns + `,
  COUNT(*) OVER() AS total_count` + summaryFrom + `
WHERE ($1::text IS NULL OR o.status = $1)
  AND ($2::uuid IS NULL OR o.customer_id = $2)
  AND ($3::text = '' OR o.code ILIKE '%' || $3 || '%' OR c.name ILIKE '%' || $3 || '%')
  AND ($4::date IS NULL OR o.order_date >= $4)
  AND ($5::date IS NULL OR o.order_date <= $5)
  AND ($6::date IS NULL OR o.due_date >= $6)
  AND ($7::date IS NULL OR o.due_date <= $7)
GROUP BY o.id, c.id
ORDER BY o.order_date DESC, o.created_at DESC
LIMIT $8 OFFSET $9
`

func (q *Queries) ListOrders(ctx context.Context, filter OrderFilter) (OrderPage, error) {
	limit, offset := pageBounds(filter)
	rows, err := q.db.Query(ctx, listOrders,
		statusParam(filter.Status),
		filter.CustomerID,
		filter.Search,
		filter.OrderFrom,
		filter.OrderTo,
		filter.DueFrom,
		filter.DueTo,
		limit,
		offset,
	)
	if err != nil {
		return OrderPage{}, wrap("list orders", err)
	}
	defer rows.Close()

	page := OrderPage{Orders: []orders.OrderSummary{}}
	for rows.Next() {
		var r summaryRow
		var total int64
		if err := rows.Scan(append(r.dest(), &total)...); err != nil {
			return OrderPage{}, wrap("list orders", err)
		}
		page.Orders = append(page.Orders, r.finish())
		page.Total = int(total)
	}
	if err := rows.Err(); err != nil {
		return OrderPage{}, wrap("list orders", err)
	}
	return page, nil
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

func pageBounds(filter OrderFilter) (int, int) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

const listOrderItems = `
SELECT id, order_id, product_name, color, size, quantity, actual_quantity, unit_price
FROM order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]orders.OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, wrap("list order items", err)
	}
	defer rows.Close()

	items := []orders.OrderItem{}
	for rows.Next() {
		var item orders.OrderItem
		var quantity, actual, price pgtype.Numeric
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductName,
			&item.Color,
			&item.Size,
			&quantity,
			&actual,
			&price,
		); err != nil {
			return nil, wrap("list order items", err)
		}
		item.Quantity = fromNumeric(quantity)
		item.ActualQuantity = fromNullableNumeric(actual)
		item.UnitPrice = fromNumeric(price)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list order items", err)
	}
	return items, nil
}

const updateItemActualQuantities = `
UPDATE order_items AS i
SET actual_quantity = u.qty
FROM unnest($2::uuid[], $3::numeric[]) AS u(id, qty)
WHERE i.id = u.id AND i.order_id = $1
RETURNING i.id
`

// UpdateItemActualQuantities writes every update in one statement. A nil
// quantity is sent as NULL.
func (q *Queries) UpdateItemActualQuantities(ctx context.Context, orderID uuid.UUID, updates []orders.ActualQuantityUpdate) (int, error) {
	ids := make([]uuid.UUID, 0, len(updates))
	quantities := make([]pgtype.Numeric, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.ItemID)
		if u.Quantity == nil {
			quantities = append(quantities, pgtype.Numeric{})
			continue
		}
		quantities = append(quantities, numeric(*u.Quantity))
	}

	rows, err := q.db.Query(ctx, updateItemActualQuantities, orderID, ids, quantities)
	if err != nil {
		return 0, wrap("update actual quantities", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, wrap("update actual quantities", err)
	}
	return n, nil
}

const listOrderSummaries = `
SELECT ` + summaryColumns + summaryFrom + `
GROUP BY o.id, c.id
ORDER BY o.order_date DESC, o.created_at DESC
`

func (q *Queries) ListOrderSummaries(ctx context.Context) ([]orders.OrderSummary, error) {
	rows, err := q.db.Query(ctx, listOrderSummaries)
	if err != nil {
		return nil, wrap("list order summaries", err)
	}
	items, err := collectSummaries(rows)
	if err != nil {
		return nil, wrap("list order summaries", err)
	}
	return items, nil
}
