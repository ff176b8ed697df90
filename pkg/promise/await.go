package promise

import (
	"context"
	"fmt"

	eventloop "github.com/joeycumines/go-eventloop"
)

// ReasonError carries a rejection reason that is not an error.
type ReasonError struct {
	Reason any
}

func (e *ReasonError) Error() string {
	return fmt.Sprintf("promise rejected: %v", e.Reason)
}

// Await blocks until p settles or ctx is done. It must not be called from the
// loop goroutine, since settlement is delivered there.
func Await[T any](ctx context.Context, p *eventloop.ChainedPromise) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-p.ToChannel():
		if p.State() == eventloop.Rejected {
			if err, ok := r.(error); ok {
				return zero, err
			}
			return zero, &ReasonError{Reason: r}
		}
		if r == nil {
			return zero, nil
		}
		v, ok := r.(T)
		if !ok {
			return zero, fmt.Errorf("promise: fulfilled with %T, want %T", r, zero)
		}
		return v, nil
	}
}
