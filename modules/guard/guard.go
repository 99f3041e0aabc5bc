package guard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBusy is returned by Acquire while a key is held or cooling down.
var ErrBusy = errors.New("action is already in progress or cooling down")

// BusyError carries how long the caller should wait before retrying.
type BusyError struct {
	RetryAfter time.Duration
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrBusy, e.RetryAfter)
}

func (e *BusyError) Unwrap() error {
	return ErrBusy
}

// Lease is a held key. Finish keeps the key for cooldown, or frees it when
// cooldown is zero. Finishing a lease that has already expired is a no-op.
type Lease interface {
	Finish(ctx context.Context, cooldown time.Duration) error
}

// Guard serializes actions per key.
type Guard interface {
	// Acquire claims key for at most hold. It returns a *BusyError when the
	// key is taken.
	Acquire(ctx context.Context, key string, hold time.Duration) (Lease, error)
}

// RetryAfter extracts the wait hint from a busy error.
func RetryAfter(err error) (time.Duration, bool) {
	var busy *BusyError
	if errors.As(err, &busy) {
		return busy.RetryAfter, true
	}
	return 0, false
}
