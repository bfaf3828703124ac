package relations

import (
	"errors"
	"fmt"
)

// ErrInsufficientData marks a pair or trader excluded because it fell below a
// configured evidence minimum. Callers skip the entity and keep going; it is
// never reported as a zero score.
var ErrInsufficientData = errors.New("relations: insufficient data")

// ErrInvalidConfig marks a structural configuration problem. It is fatal: the
// run aborts before any computation.
var ErrInvalidConfig = errors.New("relations: invalid config")

// IntegrityError describes a single malformed trade record. The record is
// skipped and counted; the run continues.
type IntegrityError struct {
	TraderID string
	MarketID string
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("relations: bad trade record trader=%s market=%s: %s", e.TraderID, e.MarketID, e.Reason)
}
