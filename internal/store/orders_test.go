package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arden-atelier/orderdesk/internal/orders"
)

// scriptedDB answers Query with rows and QueryRow with row; the other calls
// are unused by these tests.
type scriptedDB struct {
	rows     pgx.Rows
	queryErr error
	row      pgx.Row
	lastSQL  string
	lastArgs []any
}

func (d *scriptedDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (d *scriptedDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.lastSQL, d.lastArgs = sql, args
	return d.rows, d.queryErr
}

func (d *scriptedDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.lastSQL, d.lastArgs = sql, args
	return d.row
}

func (d *scriptedDB) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("unexpected copy")
}

type badScanRows struct {
	next bool
}

func (r *badScanRows) Close()                                       {}
func (r *badScanRows) Err() error                                   { return nil }
func (r *badScanRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *badScanRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *badScanRows) Scan(...any) error                            { return errors.New("cannot scan uuid") }
func (r *badScanRows) Values() ([]any, error)                       { return nil, nil }
func (r *badScanRows) RawValues() [][]byte                          { return nil }
func (r *badScanRows) Conn() *pgx.Conn                              { return nil }

func (r *badScanRows) Next() bool {
	if r.next {
		return false
	}
	r.next = true
	return true
}

// idRows yields n rows and ignores Scan.
type idRows struct {
	badScanRows
	n int
}

func (r *idRows) Scan(...any) error { return nil }

func (r *idRows) Next() bool {
	if r.n == 0 {
		return false
	}
	r.n--
	return true
}

type intRow int

func (r intRow) Scan(dest ...any) error {
	*(dest[0].(*int)) = int(r)
	return nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestUpdateOrderStatusWrapsScanErrors(t *testing.T) {
	q := New(&scriptedDB{rows: &badScanRows{}})

	_, err := q.UpdateOrderStatus(context.Background(), []uuid.UUID{uuid.New()}, orders.StatusDone)
	require.Error(t, err)
	assert.Equal(t, "update order status: cannot scan uuid", err.Error())
}

func TestMaxCodeSequenceBoundsCapturedDigits(t *testing.T) {
	db := &scriptedDB{row: intRow(12)}
	seq, err := New(db).MaxCodeSequence(context.Background(), "19102026")
	require.NoError(t, err)
	assert.Equal(t, 12, seq)
	require.Len(t, db.lastArgs, 1)
	assert.Equal(t, "-19102026-([0-9]{1,9})$", db.lastArgs[0])
}

func TestWrapClassifiesErrors(t *testing.T) {
	assert.NoError(t, wrap("get order", nil))

	err := wrap("get order", pgx.ErrNoRows)
	assert.ErrorIs(t, err, orders.ErrNotFound)
	assert.Equal(t, "get order: not found", err.Error())

	err = wrap("create order", &pgconn.PgError{Code: "23505", ConstraintName: ConstraintOrderCode})
	assert.True(t, orders.IsConflict(err))

	err = wrap("create order", &pgconn.PgError{Code: "23503", ConstraintName: "orders_customer_id_fkey"})
	var validation *orders.ValidationError
	assert.ErrorAs(t, err, &validation)

	err = wrap("list orders", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "list orders: context deadline exceeded", err.Error())

	_, err = New(&scriptedDB{row: errRow{err: pgx.ErrNoRows}}).MaxCodeSequence(context.Background(), "19102026")
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestUpdateItemActualQuantitiesSendsNullForCleared(t *testing.T) {
	db := &scriptedDB{rows: &idRows{n: 2}}
	orderID, a, b := uuid.New(), uuid.New(), uuid.New()
	qty := decimal.RequireFromString("2.5")

	n, err := New(db).UpdateItemActualQuantities(context.Background(), orderID, []orders.ActualQuantityUpdate{
		{ItemID: a, Quantity: &qty},
		{ItemID: b},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, db.lastArgs, 3)
	assert.Equal(t, orderID, db.lastArgs[0])
	assert.Equal(t, []uuid.UUID{a, b}, db.lastArgs[1])
	quantities := db.lastArgs[2].([]pgtype.Numeric)
	require.Len(t, quantities, 2)
	assert.True(t, quantities[0].Valid)
	assert.Equal(t, "2.5", fromNumeric(quantities[0]).String())
	assert.False(t, quantities[1].Valid)
}

func TestCountCustomers(t *testing.T) {
	n, err := New(&scriptedDB{row: intRow(3)}).CountCustomers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = New(&scriptedDB{row: errRow{err: errors.New("pool closed")}}).CountCustomers(context.Background())
	assert.EqualError(t, err, "count customers: pool closed")
}
