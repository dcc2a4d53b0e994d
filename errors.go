package redistate

import (
	"errors"
	"fmt"
)

// ErrInactiveClient is returned when an operation runs before Open or
// after Close. Never retried internally.
var ErrInactiveClient = errors.New("redistate: client is not open")

// NotFoundError reports a read that found no record. Distinguishable
// from a present-but-empty record: the store reports key absence, not
// field emptiness.
type NotFoundError struct {
	Index ResourceIndex
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("redistate: no %s record for %q", e.Index, e.Key)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ConnectionError reports a failed attempt to reach the backing store.
// Retry policy, if any, belongs to the caller.
type ConnectionError struct {
	Index ResourceIndex
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("redistate: connect %s partition: %v", e.Index, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PartialBulkError reports a bulk mutation that partially failed: the
// transactional batch itself may have applied while dependent writes
// (nested user upserts) did not. Nothing already applied is rolled back.
type PartialBulkError struct {
	Index ResourceIndex
	// Applied reports whether the primary batch committed.
	Applied bool
	// Sub holds the failures of the dependent writes, in no particular order.
	Sub []error
}

func (e *PartialBulkError) Error() string {
	return fmt.Sprintf("redistate: bulk write to %s partially failed (batch applied: %t, %d sub-errors): %v",
		e.Index, e.Applied, len(e.Sub), errors.Join(e.Sub...))
}

func (e *PartialBulkError) Unwrap() []error { return e.Sub }
