package graph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/crudgen-api/internal/model"
	"github.com/couchcryptid/crudgen-api/internal/schema"
)

// Convert returns the record as an instance of the entity's output type with every
// navigable relationship resolved.
func (r *Runtime) Convert(ctx context.Context, entity string, rec model.Record) (map[string]any, error) {
	return r.convert(ctx, entity, rec, nil)
}

// convert copies scalars verbatim and fetches the related records of every
// relationship field present on the output descriptor. Cut edges never reach the
// descriptor, so recursion follows an acyclic graph.
func (r *Runtime) convert(ctx context.Context, entity string, rec model.Record, sel selection) (map[string]any, error) {
	d, ok := r.build.Registry.Output(entity)
	if !ok {
		return nil, fmt.Errorf("no output type for %s", entity)
	}
	e, _ := r.build.Entity(entity)
	pk := e.PrimaryName()

	out := make(map[string]any, len(d.Fields))
	var rels []schema.FieldDef
	for _, f := range d.Fields {
		switch {
		case f.Relation != nil:
			if sel.has(f.Name) {
				rels = append(rels, f)
			}
		case f.Name == pk:
			out[f.Name] = rec.ID
		default:
			if v, ok := rec.Fields[f.Name]; ok {
				out[f.Name] = v
			}
		}
	}
	if len(rels) == 0 {
		return out, nil
	}

	results := make([]any, len(rels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.FetchConcurrency)
	for i, f := range rels {
		g.Go(func() error {
			v, err := r.related(gctx, rec, *f.Relation, sel.child(f.Name))
			if err != nil {
				return fmt.Errorf("resolve %s.%s: %w", entity, f.Name, err)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, f := range rels {
		out[f.Name] = results[i]
	}
	return out, nil
}

// related fetches and converts the record(s) a relationship points to.
func (r *Runtime) related(ctx context.Context, rec model.Record, rel model.Relationship, sel selection) (any, error) {
	if rel.IsReverse() {
		recs, err := r.data.ListBy(ctx, rel.Target, rel.Inverse, rec.ID, r.opts.MaxNestedItems)
		if err != nil {
			return nil, err
		}
		out, err := r.convertAll(ctx, rel.Target, recs, sel)
		if err != nil {
			return nil, err
		}
		if rel.IsMany() {
			return out, nil
		}
		if len(out) == 0 {
			return []map[string]any{}, nil
		}
		return out[:1], nil
	}

	ids := rec.RelatedIDs(rel.Name)
	if !rel.IsMany() {
		if len(ids) == 0 {
			return nil, nil
		}
		target, err := r.data.Get(ctx, rel.Target, ids[0])
		if model.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return r.convert(ctx, rel.Target, target, sel)
	}

	if len(ids) > r.opts.MaxNestedItems {
		ids = ids[:r.opts.MaxNestedItems]
	}
	return r.fetchMany(ctx, rel.Target, ids, sel)
}

// fetchMany loads ids concurrently, keeping their order and skipping dangling
// references.
func (r *Runtime) fetchMany(ctx context.Context, entity string, ids []string, sel selection) ([]map[string]any, error) {
	found := make([]map[string]any, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.FetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := r.data.Get(gctx, entity, id)
			if model.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i], err = r.convert(gctx, entity, rec, sel)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(found))
	for _, m := range found {
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *Runtime) convertAll(ctx context.Context, entity string, recs []model.Record, sel selection) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		m, err := r.convert(ctx, entity, rec, sel)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
