package binding

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vnetkit/bindstate/log"
	"github.com/vnetkit/bindstate/manager/state/store"
)

// retryInterval is the wait before the first retry. Later waits grow
// exponentially.
var retryInterval = 10 * time.Millisecond

// RetryOnConflict calls fn until it succeeds, fails with an error other
// than a store conflict, maxAttempts calls were made or ctx is done. fn
// should run a whole store transaction, so that each attempt reads fresh
// state.
func RetryOnConflict(ctx context.Context, maxAttempts int, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryInterval
	eb.MaxInterval = time.Second
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxAttempts-1)), ctx)

	return backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && !store.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		log.G(ctx).WithError(err).Debugf("store conflict, retrying in %v", wait)
	})
}
