package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/crudgen-api/internal/graph"
	"github.com/couchcryptid/crudgen-api/internal/model"
)

// Op is the mutation a record event requests.
type Op string

// Supported record event operations.
const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// RecordEvent is one message on the ingest topic. Input has the shape of the
// entity's create or update input; update inputs carry the record identifier.
// Choice fields use their stored values, not enum keys.
type RecordEvent struct {
	Op     Op             `json:"op" validate:"required,oneof=create update delete"`
	Entity string         `json:"entity" validate:"required"`
	ID     string         `json:"id,omitempty" validate:"required_if=Op delete"`
	Input  map[string]any `json:"input,omitempty" validate:"required_unless=Op delete"`
}

// RecordWriter applies record events. *graph.Handler implements it against the
// schema currently served.
type RecordWriter interface {
	Create(ctx context.Context, entity string, input map[string]any) (model.Record, error)
	Update(ctx context.Context, entity string, input map[string]any) (model.Record, error)
	Delete(ctx context.Context, entity, id string) (bool, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func decodeEvent(data []byte) (RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return RecordEvent{}, fmt.Errorf("decode record event: %w", err)
	}
	if err := validate.Struct(ev); err != nil {
		return RecordEvent{}, fmt.Errorf("validate record event: %w", err)
	}
	return ev, nil
}

// apply runs the event through the writer. Deleting a missing record succeeds.
func apply(ctx context.Context, w RecordWriter, ev RecordEvent) error {
	switch ev.Op {
	case OpCreate:
		_, err := w.Create(ctx, ev.Entity, ev.Input)
		return err
	case OpUpdate:
		_, err := w.Update(ctx, ev.Entity, ev.Input)
		return err
	case OpDelete:
		_, err := w.Delete(ctx, ev.Entity, ev.ID)
		return err
	}
	return fmt.Errorf("unsupported op %q", ev.Op)
}

// retryable reports whether a failed event may succeed later. Rejected writes and
// events the schema cannot serve are final.
func retryable(err error) bool {
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrConstraint) {
		return false
	}
	return errors.Is(err, graph.ErrMutation)
}
