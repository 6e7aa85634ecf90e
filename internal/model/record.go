package model

import (
	"context"
	"errors"
	"fmt"
)

// Record is a stored domain object. Forward relationships live in Fields under the
// relationship name: a related id for single cardinality, a []string of ids for many.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// RelatedIDs returns the ids a forward relationship of the record points to.
func (r Record) RelatedIDs(relationship string) []string {
	switch v := r.Fields[relationship].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				ids = append(ids, s)
			}
		}
		return ids
	}
	return nil
}

// DataAccess is the persistence collaborator the generated resolvers call into.
// Every method is a suspension point; cancellation follows ctx.
type DataAccess interface {
	List(ctx context.Context, entity string, limit int) ([]Record, error)
	Get(ctx context.Context, entity, id string) (Record, error)
	Create(ctx context.Context, entity string, fields map[string]any) (Record, error)
	Update(ctx context.Context, entity, id string, fields map[string]any) (Record, error)
	Delete(ctx context.Context, entity, id string) error
	// ListBy returns records of entity whose field equals value or, for list-valued
	// fields, contains it. A limit of 0 returns every match.
	ListBy(ctx context.Context, entity, field, value string, limit int) ([]Record, error)
}

// ─── Errors ─────────────────────────────────────────────────

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("record not found")
	// ErrConstraint is matched by every *ConstraintError.
	ErrConstraint = errors.New("constraint violation")
)

// NotFoundError reports a missing record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConstraintError reports a write rejected by the store.
type ConstraintError struct {
	Entity  string
	Message string
	Cause   error
}

func (e *ConstraintError) Error() string {
	if e.Message == "" && e.Cause != nil {
		return fmt.Sprintf("%s: constraint violation: %v", e.Entity, e.Cause)
	}
	return fmt.Sprintf("%s: constraint violation: %s", e.Entity, e.Message)
}

// Is lets errors.Is(err, ErrConstraint) match.
func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }

func (e *ConstraintError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is or wraps a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
