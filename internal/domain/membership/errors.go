package membership

import (
	"errors"
	"fmt"
)

var (
	ErrMemberNotFound       = errors.New("member not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrDuplicateActiveDNI   = errors.New("dni already registered to an active member")
	ErrDNIBelongsToInactive = errors.New("dni belongs to an inactive member")
	ErrDuplicateDNI         = errors.New("dni already registered to another member")
	ErrInvalidVisits        = errors.New("visits must not be negative")

	// ErrConflict marks lock contention or a lost race. Repositories return
	// it; the service retries and never hands it to callers.
	ErrConflict = errors.New("storage conflict")

	ErrStorage = errors.New("storage error")
)

// StorageError wraps any fault that is not one of the business errors above.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func isBusinessError(err error) bool {
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrDuplicateActiveDNI) ||
		errors.Is(err, ErrDNIBelongsToInactive) ||
		errors.Is(err, ErrDuplicateDNI) ||
		errors.Is(err, ErrInvalidVisits)
}
