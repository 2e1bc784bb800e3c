package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type CustomerResolver struct {
	store   CustomerStore
	timeout time.Duration
}

func NewCustomerResolver(store CustomerStore, callTimeout time.Duration) *CustomerResolver {
	return &CustomerResolver{store: store, timeout: callTimeout}
}

// Resolve returns the customer matching (name, phone) exactly, creating it
// when none exists. Names are trimmed but never case-folded: "Lan" and "lan"
// are different customers.
func (r *CustomerResolver) Resolve(ctx context.Context, name, phone string) (uuid.UUID, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, false, &ValidationError{Field: "customer_name", Message: "is required"}
	}
	phonePtr := optionalString(phone)

	found, err := r.find(ctx, name, phonePtr)
	if err == nil {
		return found.ID, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return uuid.Nil, false, storageErr("find customer", err)
	}

	callCtx, cancel := withTimeout(ctx, r.timeout)
	created, err := r.store.CreateCustomer(callCtx, NewCustomer{Name: name, Phone: phonePtr})
	cancel()
	if err != nil {
		if IsConflict(err) {
			// A concurrent import created the same customer first.
			if existing, lookupErr := r.find(ctx, name, phonePtr); lookupErr == nil {
				return existing.ID, false, nil
			}
		}
		return uuid.Nil, false, storageErr("create customer", err)
	}
	return created.ID, true, nil
}

func (r *CustomerResolver) find(ctx context.Context, name string, phone *string) (Customer, error) {
	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return r.store.FindCustomer(callCtx, name, phone)
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
