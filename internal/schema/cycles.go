package schema

import (
	"fmt"
	"log/slog"
)

// CycleEdge is a relationship edge (From.Relationship -> To) of the entity graph.
type CycleEdge struct {
	From         string
	To           string
	Relationship string
}

func (e CycleEdge) String() string {
	return fmt.Sprintf("%s.%s->%s", e.From, e.Relationship, e.To)
}

// CutPolicy chooses which edge of a cycle is cut.
type CutPolicy string

const (
	// CutPreferReverse cuts the first reverse edge in path order, else the first edge.
	CutPreferReverse CutPolicy = "prefer_reverse"
	// CutClosingEdge cuts the edge that closed the cycle.
	CutClosingEdge CutPolicy = "closing_edge"
)

// ParseCutPolicy parses a policy name; the empty string selects CutPreferReverse.
func ParseCutPolicy(s string) (CutPolicy, error) {
	switch CutPolicy(s) {
	case "", CutPreferReverse:
		return CutPreferReverse, nil
	case CutClosingEdge:
		return CutClosingEdge, nil
	}
	return "", fmt.Errorf("unknown cycle cut policy %q", s)
}

// ─── Cut set ────────────────────────────────────────────────

// CutSet holds the edges removed from output generation.
type CutSet struct {
	edges map[CycleEdge]bool
	order []CycleEdge
}

// NewCutSet creates an empty CutSet.
func NewCutSet() *CutSet {
	return &CutSet{edges: make(map[CycleEdge]bool)}
}

func (s *CutSet) add(e CycleEdge) {
	if !s.edges[e] {
		s.edges[e] = true
		s.order = append(s.order, e)
	}
}

// Contains reports whether the edge is cut.
func (s *CutSet) Contains(e CycleEdge) bool { return s.edges[e] }

// Has reports whether the relationship of entity from is cut.
func (s *CutSet) Has(from, relationship string) bool {
	for e := range s.edges {
		if e.From == from && e.Relationship == relationship {
			return true
		}
	}
	return false
}

// Edges returns the cut edges in the order they were chosen.
func (s *CutSet) Edges() []CycleEdge { return append([]CycleEdge(nil), s.order...) }

// Len returns the number of cut edges.
func (s *CutSet) Len() int { return len(s.order) }

// ─── Graph ──────────────────────────────────────────────────

type graphEdge struct {
	CycleEdge
	Reverse bool
}

// Graph is the directed entity graph over included relationships. Nodes and edges keep
// insertion order so analysis is deterministic.
type Graph struct {
	nodes []string
	adj   map[string][]graphEdge
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{adj: make(map[string][]graphEdge)}
}

// AddNode adds an entity.
func (g *Graph) AddNode(name string) {
	if _, ok := g.adj[name]; ok {
		return
	}
	g.nodes = append(g.nodes, name)
	g.adj[name] = nil
}

// AddEdge adds a relationship edge. Parallel edges between the same entities are kept.
func (g *Graph) AddEdge(from, relationship, to string, reverse bool) {
	g.AddNode(from)
	g.AddNode(to)
	g.adj[from] = append(g.adj[from], graphEdge{
		CycleEdge: CycleEdge{From: from, To: to, Relationship: relationship},
		Reverse:   reverse,
	})
}

// relationshipGraph builds the graph of included relationships between generated entities.
func (c *BuildContext) relationshipGraph() *Graph {
	g := NewGraph()
	for _, name := range c.order {
		g.AddNode(name)
	}
	for _, name := range c.order {
		cfg := c.configs[name]
		for _, r := range c.entities[name].Relationships {
			rc, ok := cfg.Relationships[r.Name]
			if !ok || !rc.Include || !c.generated(r.Target) {
				continue
			}
			g.AddEdge(name, r.Name, r.Target, r.IsReverse())
		}
	}
	return g
}

// ─── Analysis ───────────────────────────────────────────────

const (
	unvisited = iota
	onPath
	visited
)

type cycleAnalyzer struct {
	graph    *Graph
	policy   CutPolicy
	logger   *slog.Logger
	cuts     *CutSet
	warnings []CycleDetectedWarning

	state   map[string]int
	pathPos map[string]int
	path    []graphEdge
	found   bool
}

// AnalyzeCycles cuts one edge from every relationship cycle so the remaining graph is
// acyclic. Each cut is logged as a warning and returned.
func AnalyzeCycles(g *Graph, policy CutPolicy, logger *slog.Logger) (*CutSet, []CycleDetectedWarning) {
	a := &cycleAnalyzer{graph: g, policy: policy, logger: logger, cuts: NewCutSet()}
	// A pass skips cycles that already lost an edge during that pass; repeat until a pass
	// finds none so cycles sharing only some edges are still broken.
	for {
		a.found = false
		a.state = make(map[string]int, len(g.nodes))
		a.pathPos = make(map[string]int)
		for _, n := range g.nodes {
			if a.state[n] == unvisited {
				a.visit(n)
			}
		}
		if !a.found {
			return a.cuts, a.warnings
		}
	}
}

func (a *cycleAnalyzer) visit(node string) {
	a.state[node] = onPath
	a.pathPos[node] = len(a.path)
	for _, e := range a.graph.adj[node] {
		if a.cuts.Contains(e.CycleEdge) {
			continue
		}
		switch a.state[e.To] {
		case onPath:
			cycle := make([]graphEdge, 0, len(a.path)-a.pathPos[e.To]+1)
			cycle = append(cycle, a.path[a.pathPos[e.To]:]...)
			cycle = append(cycle, e)
			a.cut(cycle)
		case unvisited:
			a.path = append(a.path, e)
			a.visit(e.To)
			a.path = a.path[:len(a.path)-1]
		}
	}
	a.state[node] = visited
}

func (a *cycleAnalyzer) cut(cycle []graphEdge) {
	for _, e := range cycle {
		if a.cuts.Contains(e.CycleEdge) {
			return
		}
	}
	chosen := a.choose(cycle)
	a.cuts.add(chosen.CycleEdge)
	a.found = true

	w := CycleDetectedWarning{Cut: chosen.CycleEdge}
	for _, e := range cycle {
		w.Cycle = append(w.Cycle, e.CycleEdge)
	}
	a.warnings = append(a.warnings, w)
	a.logger.Warn("relationship cycle detected, cutting edge",
		"entity", chosen.From,
		"relationship", chosen.Relationship,
		"target", chosen.To,
		"cycle", w.Error(),
	)
}

func (a *cycleAnalyzer) choose(cycle []graphEdge) graphEdge {
	if a.policy == CutClosingEdge {
		return cycle[len(cycle)-1]
	}
	for _, e := range cycle {
		if e.Reverse {
			return e
		}
	}
	return cycle[0]
}
