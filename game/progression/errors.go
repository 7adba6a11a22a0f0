package progression

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the user, quest or progress row does not
// exist.
var ErrNotFound = errors.New("progression: not found")

// ErrConflict signals that a concurrent write invalidated the snapshot a
// commit was computed from. It is internal: the coordinator retries on it
// and never surfaces it directly.
var ErrConflict = errors.New("progression: concurrent update conflict")

// ErrTransient is returned when the bounded conflict-retry budget is
// exhausted. Callers may safely retry the whole action.
var ErrTransient = errors.New("progression: transient failure, retry")

// ValidationError reports an illegal state transition or malformed input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "progression: " + e.Reason
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
