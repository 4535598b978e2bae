package engine

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Callers classify with errors.Is; the API layer maps them to
// status codes. Tenant isolation violations always present as ErrNotFound.
var (
	ErrValidation  = errors.New("invalid input")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("already exists")
	ErrComputation = errors.New("computation invariant violated")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

// translateStoreErr converts driver-level errors into the engine taxonomy.
// Unique-index violations mean "already exists"; a missing row inside an
// owner-scoped query means not found, whatever the underlying cause.
func translateStoreErr(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", ErrConflict, entity)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFoundf("%s", entity)
	default:
		return err
	}
}
