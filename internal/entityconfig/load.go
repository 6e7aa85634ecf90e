package entityconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var extensions = []string{".yml", ".yaml", ".json"}

// Group is one entity group: a name and the directory holding its fragments.
type Group struct {
	Name string
	Dir  string
}

// Set is the result of loading every group.
type Set struct {
	Configs  map[string]EntityConfig
	Order    []string
	Problems []error
}

// Get returns the merged config of an entity.
func (s *Set) Get(entity string) (EntityConfig, bool) {
	c, ok := s.Configs[entity]
	return c, ok
}

// Len returns the number of configured entities.
func (s *Set) Len() int { return len(s.Configs) }

// Loader reads entity groups from disk.
type Loader struct {
	logger  *slog.Logger
	decoder *decoder
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger, decoder: newDecoder()}
}

// DiscoverGroups returns the groups under root. With names empty every subdirectory is a
// group, in lexical order; otherwise the named directories are used in the given order.
func DiscoverGroups(root string, names []string) ([]Group, error) {
	if len(names) > 0 {
		groups := make([]Group, 0, len(names))
		for _, n := range names {
			groups = append(groups, Group{Name: n, Dir: filepath.Join(root, n)})
		}
		return groups, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read config root: %w", err)
	}
	var groups []Group
	for _, e := range entries {
		if e.IsDir() {
			groups = append(groups, Group{Name: e.Name(), Dir: filepath.Join(root, e.Name())})
		}
	}
	return groups, nil
}

// Load loads every group in order. Failures are recorded in Set.Problems and never stop
// the remaining groups or entities.
func (l *Loader) Load(groups []Group) *Set {
	set := &Set{Configs: make(map[string]EntityConfig)}
	for _, g := range groups {
		l.loadGroup(set, g)
	}
	return set
}

func (l *Loader) loadGroup(set *Set, g Group) {
	entries, err := os.ReadDir(g.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("config group directory missing, skipping", "group", g.Name, "dir", g.Dir)
			return
		}
		l.problem(set, &ConfigError{Group: g.Name, Path: g.Dir, Err: err})
		return
	}
	files := configFiles(entries)
	if len(files) == 0 {
		l.logger.Warn("config group directory empty, skipping", "group", g.Name, "dir", g.Dir)
		return
	}

	defaults := map[string]any{}
	if path, ok := findStem(g.Dir, files, "defaults"); ok {
		raw, err := readFragment(path)
		if err != nil {
			l.problem(set, &ConfigError{Group: g.Name, Path: path, Err: err})
			return
		}
		if inner, ok := raw["defaults"].(map[string]any); ok {
			raw = inner
		}
		defaults = raw
	}

	fragments, err := l.fragments(g, files, defaults)
	if err != nil {
		l.problem(set, err)
		return
	}
	for _, f := range fragments {
		if f.err != nil {
			l.problem(set, f.err)
			continue
		}
		cfg, err := l.decoder.Decode(Merge(f.defaults, f.raw))
		if err != nil {
			l.problem(set, &ConfigError{Group: g.Name, Entity: f.entity, Path: f.path, Err: err})
			continue
		}
		cfg.Model = f.entity
		cfg.Group = g.Name
		l.add(set, cfg)
	}
}

type fragment struct {
	entity   string
	path     string
	raw      map[string]any
	defaults map[string]any
	err      error
}

// fragments lists the entity fragments of a group, from models.* when present and from
// the individual files otherwise.
func (l *Loader) fragments(g Group, files []string, defaults map[string]any) ([]fragment, error) {
	if path, ok := findStem(g.Dir, files, "models"); ok {
		raw, err := readFragment(path)
		if err != nil {
			return nil, &ConfigError{Group: g.Name, Path: path, Err: err}
		}
		if extra, ok := raw["defaults"].(map[string]any); ok {
			defaults = Merge(defaults, extra)
		}
		models := raw
		if inner, ok := raw["models"].(map[string]any); ok {
			models = inner
		}
		names := make([]string, 0, len(models))
		for name := range models {
			if name != "defaults" {
				names = append(names, name)
			}
		}
		slices.Sort(names)
		out := make([]fragment, 0, len(names))
		for _, name := range names {
			f := fragment{entity: name, path: path, defaults: defaults}
			switch v := models[name].(type) {
			case map[string]any:
				f.raw = v
			case nil:
				f.raw = map[string]any{}
			default:
				f.err = &ConfigError{Group: g.Name, Entity: name, Path: path, Err: fmt.Errorf("fragment is %T, want a mapping", v)}
			}
			out = append(out, f)
		}
		return out, nil
	}

	var out []fragment
	for _, file := range files {
		stem := strings.TrimSuffix(file, filepath.Ext(file))
		if stem == "defaults" {
			continue
		}
		path := filepath.Join(g.Dir, file)
		f := fragment{entity: stem, path: path, defaults: defaults}
		raw, err := readFragment(path)
		if err != nil {
			f.err = &ConfigError{Group: g.Name, Entity: stem, Path: path, Err: err}
			out = append(out, f)
			continue
		}
		if name, ok := raw["model"].(string); ok && name != "" {
			f.entity = name
		}
		delete(raw, "model")
		f.raw = raw
		out = append(out, f)
	}
	return out, nil
}

func (l *Loader) add(set *Set, cfg EntityConfig) {
	if prev, ok := set.Configs[cfg.Model]; ok {
		l.logger.Warn("entity configured by more than one group, later group wins",
			"entity", cfg.Model, "previous", prev.Group, "group", cfg.Group)
		set.Order = slices.DeleteFunc(set.Order, func(n string) bool { return n == cfg.Model })
	}
	set.Configs[cfg.Model] = cfg
	set.Order = append(set.Order, cfg.Model)
}

func (l *Loader) problem(set *Set, err error) {
	l.logger.Error("entity config skipped", "error", err)
	set.Problems = append(set.Problems, err)
}

// configFiles returns the names of YAML/JSON files in lexical order.
func configFiles(entries []fs.DirEntry) []string {
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if slices.Contains(extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files
}

// findStem returns the first file named stem with a known extension, in extension order.
func findStem(dir string, files []string, stem string) (string, bool) {
	for _, ext := range extensions {
		if slices.Contains(files, stem+ext) {
			return filepath.Join(dir, stem+ext), true
		}
	}
	return "", false
}

func readFragment(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fragment: %w", err)
	}
	var raw any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("fragment is %T, want a mapping", v)
	}
}
