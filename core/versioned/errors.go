package versioned

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrIntegrity is returned when a write would leave a child pointing at a missing parent.
	ErrIntegrity = errors.New("referential integrity violation")
)

// ConflictError is returned when an update's expected version is stale.
type ConflictError struct {
	Kind     string
	ID       string
	Expected int
	Current  int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: version conflict (expected %d, current %d)", e.Kind, e.ID, e.Expected, e.Current)
}

func NewConflictError(kind, id string, expected, current int) error {
	return &ConflictError{Kind: kind, ID: id, Expected: expected, Current: current}
}

// NotFound wraps ErrNotFound with the entity kind and id.
func NotFound(kind, id string) error {
	return errors.Wrapf(ErrNotFound, "%s %s", kind, id)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// AsConflict unwraps a *ConflictError from err.
func AsConflict(err error) (*ConflictError, bool) {
	var cErr *ConflictError
	if errors.As(err, &cErr) {
		return cErr, true
	}
	return nil, false
}
