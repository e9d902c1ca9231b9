package persistence

import "errors"

// Domain sentinel errors returned by the stores.
var (
	// ErrUserNotFound indicates a missing user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserConflict indicates a uniqueness violation (duplicated email).
	ErrUserConflict = errors.New("user conflict")
	// ErrTenantNotFound indicates a missing tenant record.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantConflict indicates a uniqueness violation (duplicated name).
	ErrTenantConflict = errors.New("tenant conflict")
)

// FieldErrors maps record fields to constraint violations.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}

// ValidationError is returned when a record fails store-level constraint
// checks before it is written.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}
