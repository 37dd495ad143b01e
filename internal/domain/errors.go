package domain

import "errors"

// Errors surfaced by the ledger. Repositories translate driver errors into
// these so that nothing above the repository layer inspects driver types.
var (
	// ErrStoreUnavailable wraps any connection or transport failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDuplicateBinding: the external principal is already bound to an employee.
	ErrDuplicateBinding = errors.New("principal already bound to an employee")
	// ErrAlreadyMarked: the employee already has a mark for that day.
	ErrAlreadyMarked = errors.New("attendance already marked")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidRange  = errors.New("period end is before start")
	ErrNotFound      = errors.New("not found")
)

// IsBusinessConflict reports whether err is an expected conflict that should
// be shown to the user rather than logged as a failure.
func IsBusinessConflict(err error) bool {
	return errors.Is(err, ErrAlreadyMarked) || errors.Is(err, ErrDuplicateBinding)
}
