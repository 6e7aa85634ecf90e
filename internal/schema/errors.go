package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTypeBuildDeferred is returned when a type is requested while it is still being
	// built. Callers drop the single field that asked for it.
	ErrTypeBuildDeferred = errors.New("type build deferred")

	// ErrUnknownReference is matched by *UnknownRelationshipError and *UnknownFieldError.
	ErrUnknownReference = errors.New("unknown configured reference")

	// ErrInvalidType is matched by *InvalidTypeError.
	ErrInvalidType = errors.New("invalid generated type")
)

// UnknownRelationshipError reports a configured relationship the model does not declare.
type UnknownRelationshipError struct {
	Entity       string
	Relationship string
	// Path names the nested input whose override carried the reference, if any.
	Path string
}

func (e *UnknownRelationshipError) Error() string {
	msg := fmt.Sprintf("entity %s has no relationship %q", e.Entity, e.Relationship)
	if e.Path != "" {
		msg += " (in " + e.Path + ")"
	}
	return msg
}

func (e *UnknownRelationshipError) Is(target error) bool { return target == ErrUnknownReference }

// UnknownFieldError reports a configured lookup field the model does not declare.
type UnknownFieldError struct {
	Entity string
	Field  string
	Path   string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("entity %s has no field %q", e.Entity, e.Field)
	if e.Path != "" {
		msg += " (in " + e.Path + ")"
	}
	return msg
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrUnknownReference }

// InvalidTypeError reports a descriptor that cannot become a GraphQL type.
type InvalidTypeError struct {
	Type   string
	Reason string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("type %s: %s", e.Type, e.Reason)
}

func (e *InvalidTypeError) Is(target error) bool { return target == ErrInvalidType }

// EntityError reports an entity left out of the root operations.
type EntityError struct {
	Entity string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("entity %s omitted: %v", e.Entity, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

// CycleDetectedWarning describes a relationship cycle and the edge cut to break it.
type CycleDetectedWarning struct {
	Cycle []CycleEdge
	Cut   CycleEdge
}

func (w CycleDetectedWarning) Error() string {
	parts := make([]string, 0, len(w.Cycle))
	for _, e := range w.Cycle {
		parts = append(parts, e.String())
	}
	return fmt.Sprintf("relationship cycle %s: cut %s", strings.Join(parts, " -> "), w.Cut)
}
