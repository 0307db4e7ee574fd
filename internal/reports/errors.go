package reports

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline failure taxonomy. Validation failures are recoverable by the
// caller; the other two surface as internal failures.
var (
	ErrAllocationFailed  = errors.New("identifier allocation failed")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrReportNotFound    = errors.New("downtime report not found")

	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidStream        = errors.New("unknown notification stream")
)

// ValidationError rejects a submission before any identifier is allocated or
// any row written. MissingFields is ordered the way the fields are declared
// in the inbound contract.
type ValidationError struct {
	MissingFields []string
	Reason        string
}

func (e *ValidationError) Error() string {
	if len(e.MissingFields) > 0 {
		return fmt.Sprintf("missing required fields: %s", strings.Join(e.MissingFields, ", "))
	}
	return e.Reason
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
