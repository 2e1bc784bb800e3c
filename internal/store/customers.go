package store

import (
	"context"

	"github.com/arden-atelier/orderdesk/internal/orders"
)

const findCustomer = `
SELECT id, name, phone, code, address, note, created_at
FROM customers
WHERE name = $1 AND phone IS NOT DISTINCT FROM $2
ORDER BY created_at
LIMIT 1
`

func (q *Queries) FindCustomer(ctx context.Context, name string, phone *string) (orders.Customer, error) {
	var c orders.Customer
	err := q.db.QueryRow(ctx, findCustomer, name, phone).Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.Code,
		&c.Address,
		&c.Note,
		&c.CreatedAt,
	)
	if err != nil {
		return orders.Customer{}, wrap("find customer", err)
	}
	return c, nil
}

const createCustomer = `
INSERT INTO customers (name, phone)
VALUES ($1, $2)
RETURNING id, name, phone, code, address, note, created_at
`

func (q *Queries) CreateCustomer(ctx context.Context, arg orders.NewCustomer) (orders.Customer, error) {
	var c orders.Customer
	err := q.db.QueryRow(ctx, createCustomer, arg.Name, arg.Phone).Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.Code,
		&c.Address,
		&c.Note,
		&c.CreatedAt,
	)
	if err != nil {
		return orders.Customer{}, wrap("create customer", err)
	}
	return c, nil
}

const countCustomers = `SELECT count(*) FROM customers`

func (q *Queries) CountCustomers(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRow(ctx, countCustomers).Scan(&n); err != nil {
		return 0, wrap("count customers", err)
	}
	return n, nil
}
