// Package generator loads the entity model and configuration groups from disk and runs
// schema generation over them.
package generator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/crudgen-api/internal/config"
	"github.com/couchcryptid/crudgen-api/internal/entityconfig"
	"github.com/couchcryptid/crudgen-api/internal/introspect"
	"github.com/couchcryptid/crudgen-api/internal/observability"
	"github.com/couchcryptid/crudgen-api/internal/schema"
)

// Source names the inputs of a schema build.
type Source struct {
	ModelFile       string
	ConfigDir       string
	Groups          []string
	CutPolicy       schema.CutPolicy
	DefaultPageSize int
}

// FromConfig derives a Source from process configuration.
func FromConfig(cfg *config.Config) (Source, error) {
	policy, err := schema.ParseCutPolicy(cfg.CutPolicy)
	if err != nil {
		return Source{}, err
	}
	return Source{
		ModelFile:       cfg.ModelFile,
		ConfigDir:       cfg.ConfigDir,
		Groups:          cfg.EntityGroups,
		CutPolicy:       policy,
		DefaultPageSize: cfg.DefaultPageSize,
	}, nil
}

// Generator runs builds for one Source.
type Generator struct {
	src     Source
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Generator. m may be nil.
func New(src Source, logger *slog.Logger, m *observability.Metrics) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{src: src, logger: logger, metrics: m}
}

// Build reads the model file and every configuration group, then generates the schema.
// Configuration problems do not fail the build; they are carried in Build.Problems.
// An unreadable model file or config root does.
func (g *Generator) Build() (*schema.Build, error) {
	start := time.Now()
	b, err := g.build()
	if g.metrics != nil {
		result := "ok"
		switch {
		case err != nil:
			result = "error"
		case len(b.Problems) > 0:
			result = "partial"
		}
		g.metrics.SchemaBuildsTotal.WithLabelValues(result).Inc()
		g.metrics.SchemaBuildDuration.Observe(time.Since(start).Seconds())
	}
	return b, err
}

func (g *Generator) build() (*schema.Build, error) {
	m, err := introspect.LoadFile(g.src.ModelFile)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	groups, err := g.Groups()
	if err != nil {
		return nil, err
	}
	set := entityconfig.NewLoader(g.logger).Load(groups)

	b := schema.Generate(m, set, schema.Options{
		CutPolicy:       g.src.CutPolicy,
		DefaultPageSize: g.src.DefaultPageSize,
		Logger:          g.logger,
	})
	b.Problems = append(set.Problems, b.Problems...)
	return b, nil
}

// Groups returns the configuration groups the Source resolves to.
func (g *Generator) Groups() ([]entityconfig.Group, error) {
	groups, err := entityconfig.DiscoverGroups(g.src.ConfigDir, g.src.Groups)
	if err != nil {
		return nil, fmt.Errorf("discover config groups: %w", err)
	}
	return groups, nil
}

// WatchDirs returns the directories whose changes should trigger a rebuild.
func (g *Generator) WatchDirs() ([]string, error) {
	groups, err := g.Groups()
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(groups)+1)
	dirs = append(dirs, g.src.ConfigDir)
	for _, grp := range groups {
		dirs = append(dirs, grp.Dir)
	}
	return dirs, nil
}
