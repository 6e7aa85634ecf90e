package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/couchcryptid/crudgen-api/internal/model"
	"github.com/couchcryptid/crudgen-api/internal/observability"
	"github.com/couchcryptid/crudgen-api/internal/schema"
)

// Options tune the resolver runtime.
type Options struct {
	MaxPageSize    int
	MaxNestedItems int
	// FetchConcurrency bounds related-record fetches per converted record.
	FetchConcurrency int
	Logger           *slog.Logger
	Metrics          *observability.Metrics
}

// Runtime executes the generated root operations of one schema build against a
// DataAccess. It holds no mutable state and is safe for concurrent use.
type Runtime struct {
	build *schema.Build
	data  model.DataAccess
	opts  Options
}

var _ schema.Resolvers = (*Runtime)(nil)

// NewRuntime creates a Runtime for build.
func NewRuntime(build *schema.Build, data model.DataAccess, opts Options) *Runtime {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}
	if opts.MaxNestedItems <= 0 {
		opts.MaxNestedItems = DefaultMaxNestedItems
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runtime{build: build, data: data, opts: opts}
}

// Build returns the schema build the runtime serves.
func (r *Runtime) Build() *schema.Build { return r.build }

// Resolve implements schema.Resolvers.
func (r *Runtime) Resolve(op schema.Operation) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		start := time.Now()
		out, err := r.dispatch(p, op)
		if m := r.opts.Metrics; m != nil {
			m.ResolverDuration.WithLabelValues(op.Entity, op.Kind.String()).Observe(time.Since(start).Seconds())
			if err != nil {
				m.ResolverErrors.WithLabelValues(op.Entity, op.Kind.String()).Inc()
			}
		}
		if err != nil {
			r.opts.Logger.Warn("resolver failed", "operation", op.Name, "entity", op.Entity, "error", err)
		}
		return out, err
	}
}

func (r *Runtime) dispatch(p graphql.ResolveParams, op schema.Operation) (any, error) {
	ctx := p.Context
	if ctx == nil {
		ctx = context.Background()
	}
	sel := collectFields(p.Info)

	switch op.Kind {
	case schema.OpList:
		limit := r.build.DefaultPageSize()
		if v, ok := p.Args["limit"].(int); ok {
			limit = v
		}
		return r.list(ctx, op.Entity, limit, sel)

	case schema.OpGet:
		id, _ := p.Args["id"].(string)
		out, err := r.get(ctx, op.Entity, id, sel)
		if err != nil || out == nil {
			return nil, err
		}
		return out, nil

	case schema.OpCreate:
		input, _ := p.Args["input"].(map[string]any)
		rec, err := r.Create(ctx, op.Entity, input)
		if err != nil {
			return nil, err
		}
		return r.convert(ctx, op.Entity, rec, sel)

	case schema.OpUpdate:
		input, _ := p.Args["input"].(map[string]any)
		rec, err := r.Update(ctx, op.Entity, input)
		if err != nil {
			return nil, err
		}
		return r.convert(ctx, op.Entity, rec, sel)

	case schema.OpDelete:
		id, _ := p.Args["id"].(string)
		return r.Delete(ctx, op.Entity, id)
	}
	return nil, fmt.Errorf("unsupported operation %s", op.Name)
}

// list returns up to limit converted records of entity.
func (r *Runtime) list(ctx context.Context, entity string, limit int, sel selection) ([]map[string]any, error) {
	if err := ValidateLimit(limit, r.opts.MaxPageSize); err != nil {
		return nil, err
	}
	// DataAccess reads 0 as unbounded; a zero page is empty.
	if limit == 0 {
		return []map[string]any{}, nil
	}
	recs, err := r.data.List(ctx, entity, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entity, err)
	}
	return r.convertAll(ctx, entity, recs, sel)
}

// get returns the converted record, or nil when it does not exist.
func (r *Runtime) get(ctx context.Context, entity, id string, sel selection) (map[string]any, error) {
	rec, err := r.data.Get(ctx, entity, id)
	if model.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", entity, err)
	}
	return r.convert(ctx, entity, rec, sel)
}

// Delete removes the record and reports whether it existed.
func (r *Runtime) Delete(ctx context.Context, entity, id string) (bool, error) {
	err := r.data.Delete(ctx, entity, id)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, mutationError(entity, schema.OpDelete.String(), err)
	}
	return true, nil
}
