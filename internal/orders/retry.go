package orders

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultCodeAttempts bounds how many codes one order creation may try.
const DefaultCodeAttempts = 3

var codeRetryDelay = 20 * time.Millisecond

// CreateWithCodeRetry inserts an order under initial (or a freshly generated
// code when initial is empty). Each *ConflictError triggers regenerate and
// another insert, up to attempts inserts in total; after that the result is a
// *CodeExhaustedError. Any other error stops immediately.
func CreateWithCodeRetry(
	ctx context.Context,
	attempts int,
	initial string,
	regenerate func(ctx context.Context) (string, error),
	create func(ctx context.Context, code string) (Order, error),
) (Order, error) {
	if attempts < 1 {
		attempts = 1
	}

	code := initial
	tries := 0
	var created Order

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.WithJitter(codeRetryDelay/2, retry.NewConstant(codeRetryDelay)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if tries > 0 || code == "" {
			next, err := regenerate(ctx)
			if err != nil {
				return err
			}
			code = next
		}
		tries++

		order, err := create(ctx, code)
		if err != nil {
			if IsConflict(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		if IsConflict(err) {
			return Order{}, &CodeExhaustedError{Attempts: tries, LastCode: code}
		}
		return Order{}, err
	}
	return created, nil
}
