package schema

import (
	"log/slog"

	"github.com/couchcryptid/crudgen-api/internal/entityconfig"
	"github.com/couchcryptid/crudgen-api/internal/model"
)

// BuildContext is the mutable state of one generation run. It is threaded through every
// builder call and discarded once the registry is frozen.
type BuildContext struct {
	logger     *slog.Logger
	registry   *Registry
	cuts       *CutSet
	order      []string
	entities   map[string]*model.Entity
	configs    map[string]entityconfig.EntityConfig
	inProgress map[string]bool
	failed     map[string]error
	problems   []error
}

func newBuildContext(logger *slog.Logger) *BuildContext {
	return &BuildContext{
		logger:     logger,
		registry:   NewRegistry(),
		cuts:       NewCutSet(),
		entities:   make(map[string]*model.Entity),
		configs:    make(map[string]entityconfig.EntityConfig),
		inProgress: make(map[string]bool),
		failed:     make(map[string]error),
	}
}

func (c *BuildContext) addEntity(e *model.Entity, cfg entityconfig.EntityConfig) {
	c.entities[e.Name] = e
	c.configs[e.Name] = cfg
	c.order = append(c.order, e.Name)
}

// generated reports whether the entity takes part in this build.
func (c *BuildContext) generated(entity string) bool {
	_, ok := c.entities[entity]
	return ok
}

// begin marks a type name as under construction.
func (c *BuildContext) begin(name string) error {
	if c.inProgress[name] {
		return ErrTypeBuildDeferred
	}
	c.inProgress[name] = true
	return nil
}

func (c *BuildContext) end(name string) { delete(c.inProgress, name) }

func (c *BuildContext) report(err error) {
	c.logger.Warn("schema generation problem", "error", err)
	c.problems = append(c.problems, err)
}

func (c *BuildContext) fail(entity string, err error) {
	if _, ok := c.failed[entity]; ok {
		return
	}
	c.failed[entity] = err
	c.report(&EntityError{Entity: entity, Err: err})
}

// checkRelationships reports configured relationships the entity does not declare.
func (c *BuildContext) checkRelationships(e *model.Entity, rels map[string]entityconfig.RelationshipConfig, path string) {
	for name := range sortedKeys(rels) {
		if _, ok := e.Relationship(name); !ok {
			c.report(&UnknownRelationshipError{Entity: e.Name, Relationship: name, Path: path})
		}
	}
}
