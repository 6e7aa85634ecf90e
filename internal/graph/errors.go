package graph

import (
	"errors"
	"fmt"
)

// ErrMutation is matched by every *MutationExecutionError.
var ErrMutation = errors.New("mutation failed")

// MutationExecutionError wraps a data-access failure raised while executing a
// generated mutation.
type MutationExecutionError struct {
	Entity    string
	Operation string
	Err       error
}

func (e *MutationExecutionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Entity, e.Err)
}

func (e *MutationExecutionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMutation) match.
func (e *MutationExecutionError) Is(target error) bool { return target == ErrMutation }

// mutationError wraps err unless it already carries mutation context.
func mutationError(entity, operation string, err error) error {
	if err == nil {
		return nil
	}
	var me *MutationExecutionError
	if errors.As(err, &me) {
		return err
	}
	return &MutationExecutionError{Entity: entity, Operation: operation, Err: err}
}
