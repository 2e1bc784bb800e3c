package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	ConstraintOrderCode        = "orders_code_uidx"
	ConstraintCustomerIdentity = "customers_name_phone_uidx"
)

// Store is everything the HTTP layer and the engine read and write.
// *Queries and *Memory both implement it.
type Store interface {
	orders.Store
	GetOrder(ctx context.Context, id uuid.UUID) (orders.OrderSummary, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]orders.OrderItem, error)
	ListOrders(ctx context.Context, filter OrderFilter) (OrderPage, error)
	ListOrdersByIDs(ctx context.Context, ids []uuid.UUID) ([]orders.OrderSummary, error)
	CreateImportRun(ctx context.Context, params CreateImportRunParams) (ImportRun, error)
	GetImportRun(ctx context.Context, id uuid.UUID) (ImportRun, error)
	InsertAuditLog(ctx context.Context, params InsertAuditLogParams) error
}

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

var (
	_ Store = (*Queries)(nil)
	_ Store = (*Memory)(nil)
)

type OrderFilter struct {
	Status     *orders.Status
	CustomerID *uuid.UUID
	// Search matches order code or customer name, case-insensitively.
	Search    string
	OrderFrom *time.Time
	OrderTo   *time.Time
	DueFrom   *time.Time
	DueTo     *time.Time
	Limit     int
	Offset    int
}

type OrderPage struct {
	Orders []orders.OrderSummary
	Total  int
}

type ImportRun struct {
	ID         uuid.UUID
	Filename   string
	FileSHA256 string
	Mode       string
	Status     string
	RequestID  *string
	Report     []byte
	CreatedAt  time.Time
}

type CreateImportRunParams struct {
	Filename   string
	FileSHA256 string
	Mode       string
	Status     string
	RequestID  *string
	Report     []byte
}

type InsertAuditLogParams struct {
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	RequestID  *string
	Metadata   []byte
}

// mapError translates pgx failures into the error vocabulary of the orders
// package: no rows, unique violation, foreign key violation.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.ErrNotFound
	}
	if isUniqueConstraint(err, "") {
		var pgErr *pgconn.PgError
		errors.As(err, &pgErr)
		return &orders.ConflictError{Constraint: pgErr.ConstraintName, Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return &orders.ValidationError{Field: pgErr.ConstraintName, Message: "references a missing record"}
	}
	return err
}

func isUniqueConstraint(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if constraint == "" || pgErr.ConstraintName == constraint {
			return true
		}
	}
	return false
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func fromNullableNumeric(n pgtype.Numeric) *decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return nil
	}
	d := decimal.NewFromBigInt(n.Int, n.Exp)
	return &d
}

func statusParam(status *orders.Status) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

// wrap classifies err and names the failing query. Conflict and validation
// errors are returned as typed values; everything else keeps its cause.
func wrap(op string, err error) error {
	mapped := mapError(err)
	switch {
	case mapped == nil:
		return nil
	case mapped == orders.ErrNotFound:
		return fmt.Errorf("%s: %w", op, orders.ErrNotFound)
	case mapped != err:
		return mapped
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
