package state

import (
	"errors"
	"fmt"
)

// ErrNilValue is returned when a write op carries no value and is not a
// deletion.
var ErrNilValue = errors.New("write of nil value")

// ErrStoreAccess wraps a failure of the underlying database.
type ErrStoreAccess struct {
	Op  string
	Err error
}

func (e ErrStoreAccess) Error() string {
	return fmt.Sprintf("state store %s: %v", e.Op, e.Err)
}

func (e ErrStoreAccess) Unwrap() error {
	return e.Err
}
