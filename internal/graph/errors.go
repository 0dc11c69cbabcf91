package graph

import (
	"errors"
	"fmt"
)

// ErrEntityNotFound is matched by every lookup failure, whatever the id.
var ErrEntityNotFound = errors.New("entity not found")

// EntityNotFoundError reports the id that could not be resolved in either layer.
type EntityNotFoundError struct {
	ID string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity %s not found", e.ID)
}

func (e *EntityNotFoundError) Is(target error) bool {
	return target == ErrEntityNotFound
}
