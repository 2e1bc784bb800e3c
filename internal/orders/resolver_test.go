package orders_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()
	resolver := orders.NewCustomerResolver(fs, time.Second)

	first, created, err := resolver.Resolve(ctx, "Lan", "090")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := resolver.Resolve(ctx, " Lan ", " 090 ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fs.createCustomerCalls)
}

func TestResolveMatchesExactly(t *testing.T) {
	ctx := context.Background()
	resolver := orders.NewCustomerResolver(newFaultyStore(), time.Second)

	lan, _, err := resolver.Resolve(ctx, "Lan", "090")
	require.NoError(t, err)

	lower, created, err := resolver.Resolve(ctx, "lan", "090")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, lan, lower)

	noPhone, created, err := resolver.Resolve(ctx, "Lan", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, lan, noPhone)

	again, created, err := resolver.Resolve(ctx, "Lan", "   ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, noPhone, again)
}

func TestResolveRejectsBlankName(t *testing.T) {
	fs := newFaultyStore()
	resolver := orders.NewCustomerResolver(fs, time.Second)

	id, _, err := resolver.Resolve(context.Background(), "   ", "090")
	var verr *orders.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, uuid.Nil, id)
	assert.Zero(t, fs.findCalls)
	assert.Zero(t, fs.createCustomerCalls)
}

func TestResolveRecoversFromConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	fs := newFaultyStore()
	existing, err := fs.Memory.CreateCustomer(ctx, orders.NewCustomer{Name: "Lan", Phone: ptr("090")})
	require.NoError(t, err)

	// The first lookup misses, as if another import inserted the row right after.
	fs.hideCustomers = 1
	resolver := orders.NewCustomerResolver(fs, time.Second)

	id, created, err := resolver.Resolve(ctx, "Lan", "090")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, id)
	assert.Equal(t, 1, fs.createCustomerCalls)
	assert.Equal(t, 2, fs.findCalls)
}

func TestResolveWrapsStorageFailures(t *testing.T) {
	fs := newFaultyStore()
	fs.findErr = errors.New("pool closed")
	resolver := orders.NewCustomerResolver(fs, time.Second)

	_, _, err := resolver.Resolve(context.Background(), "Lan", "090")
	var serr *orders.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "find customer", serr.Op)
	assert.Zero(t, fs.createCustomerCalls)
}
