// Package schema generates GraphQL CRUD types from an entity model and per-entity
// configuration.
//
// Generation runs in a fixed order: relationship cycles are cut, output descriptors are
// built in three passes (scalars, relationship metadata, relationship fields), inputs are
// built with depth-bounded nesting, and every descriptor is finalized into a graphql-go
// type exactly once. The resulting Build is immutable and safe for concurrent use.
package schema

import (
	"log/slog"
	"slices"

	"github.com/graphql-go/graphql"

	"github.com/couchcryptid/crudgen-api/internal/entityconfig"
	"github.com/couchcryptid/crudgen-api/internal/model"
)

// DefaultPageSize is the list limit applied when a request does not pass one.
const DefaultPageSize = 10

// Options tune a build.
type Options struct {
	CutPolicy       CutPolicy
	DefaultPageSize int
	Logger          *slog.Logger
}

// Build is the frozen result of one generation run.
type Build struct {
	Registry *Registry
	Cuts     *CutSet
	// Entities lists, in model order, the entities whose root operations are assembled.
	Entities []string
	Problems []error
	Warnings []CycleDetectedWarning

	defaultPageSize int
	models          map[string]*model.Entity
	configs         map[string]entityconfig.EntityConfig
	fin             *finalizer
}

// Generate builds descriptors and graphql-go types for every entity the introspector
// reports and the config set configures. It never fails: entities that cannot be
// generated are left out and recorded in Problems.
func Generate(src model.Introspector, set *entityconfig.Set, opts Options) *Build {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}
	c := newBuildContext(logger)

	for _, name := range src.EntityNames() {
		cfg, ok := set.Get(name)
		if !ok {
			logger.Debug("entity not configured, skipping", "entity", name)
			continue
		}
		e, err := model.Describe(src, name)
		if err != nil {
			c.report(&EntityError{Entity: name, Err: err})
			continue
		}
		e.Group = cfg.Group
		c.addEntity(e, cfg)
	}
	for _, name := range c.order {
		c.checkRelationships(c.entities[name], c.configs[name].Relationships, "")
	}

	var warnings []CycleDetectedWarning
	c.cuts, warnings = AnalyzeCycles(c.relationshipGraph(), opts.CutPolicy, logger)

	c.basePass()
	c.relationPass()
	c.materializePass()
	for _, name := range c.order {
		if err := c.buildInputs(c.entities[name]); err != nil {
			c.fail(name, err)
		}
	}

	fin := newFinalizer(c)
	var usable []string
	for _, name := range c.order {
		if _, failed := c.failed[name]; failed {
			continue
		}
		if err := fin.entity(name); err != nil {
			c.fail(name, err)
			continue
		}
		usable = append(usable, name)
	}
	c.registry.Freeze()

	if len(usable) == 0 {
		logger.Warn("no entity generated, serving health check only")
	}
	logger.Info("schema generated",
		"entities", len(usable),
		"types", c.registry.Len(),
		"cut_edges", c.cuts.Len(),
		"problems", len(c.problems),
	)

	return &Build{
		Registry:        c.registry,
		Cuts:            c.cuts,
		Entities:        usable,
		Problems:        c.problems,
		Warnings:        warnings,
		defaultPageSize: opts.DefaultPageSize,
		models:          c.entities,
		configs:         c.configs,
		fin:             fin,
	}
}

// Entity returns the model descriptor of a generated entity.
func (b *Build) Entity(name string) (*model.Entity, bool) {
	e, ok := b.models[name]
	return e, ok
}

// Config returns the merged config of a generated entity.
func (b *Build) Config(name string) (entityconfig.EntityConfig, bool) {
	c, ok := b.configs[name]
	return c, ok
}

// DefaultPageSize returns the list limit used when none is passed.
func (b *Build) DefaultPageSize() int { return b.defaultPageSize }

// Output returns the finalized object of an entity's output descriptor.
func (b *Build) Output(entity string) (*graphql.Object, bool) {
	d, ok := b.Registry.Output(entity)
	if !ok {
		return nil, false
	}
	obj, ok := b.fin.objects[d.Index]
	return obj, ok
}

// HasEntity reports whether the entity's root operations are assembled.
func (b *Build) HasEntity(name string) bool {
	return slices.Contains(b.Entities, name)
}
