package chunk

import (
	"errors"
	"fmt"
)

// ErrNoContent indicates a chunk has no materialized or archived content
// to expand.
var ErrNoContent = errors.New("chunk has no content")

// NotFoundError indicates the requested chunk does not exist.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("chunk not found: %s", e.ID)
}

// IsNotFound reports whether err is a chunk NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
