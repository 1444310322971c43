package depgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rome/tools-sub007/internal/analysis"
	"github.com/rome/tools-sub007/internal/config"
	"github.com/rome/tools-sub007/internal/ctxlog"
	"github.com/rome/tools-sub007/internal/diagnostics"
	"github.com/rome/tools-sub007/internal/metrics"
	"github.com/rome/tools-sub007/internal/pathlock"
	"github.com/rome/tools-sub007/internal/resolver"
)

// ErrNodeNotFound is returned when a path has no node in the graph.
var ErrNodeNotFound = errors.New("node not found")

// Resolver is the part of resolver.Resolver the graph depends on.
type Resolver interface {
	Resolve(ctx context.Context, q resolver.Query) resolver.Result
	ResolveEntryAssert(ctx context.Context, q resolver.Query) (resolver.Result, error)
	Suggest(ctx context.Context, q resolver.Query, res resolver.Result) []string
}

// Options configures a Graph. Resolver, Analyzer and Project are required.
type Options struct {
	Resolver Resolver
	Analyzer analysis.Analyzer
	Project  *config.Project
	// Platform, Scale and Mocks are copied into every resolution query.
	Platform string
	Scale    int
	Mocks    bool
}

// Graph owns the nodes of a project. It is safe for concurrent use.
type Graph struct {
	resolver Resolver
	analyzer analysis.Analyzer
	project  *config.Project
	platform string
	scale    int
	mocks    bool
	locker   *pathlock.Locker

	mu    sync.RWMutex
	nodes map[string]*Node
}

// New creates an empty graph.
func New(opts Options) (*Graph, error) {
	switch {
	case opts.Resolver == nil:
		return nil, fmt.Errorf("graph requires a resolver")
	case opts.Analyzer == nil:
		return nil, fmt.Errorf("graph requires an analyzer")
	case opts.Project == nil:
		return nil, fmt.Errorf("graph requires a project")
	}
	return &Graph{
		resolver: opts.Resolver,
		analyzer: opts.Analyzer,
		project:  opts.Project,
		platform: opts.Platform,
		scale:    opts.Scale,
		mocks:    opts.Mocks,
		locker:   pathlock.New(),
		nodes:    make(map[string]*Node),
	}, nil
}

func (g *Graph) query(source, origin string) resolver.Query {
	return resolver.Query{
		Source:   source,
		Origin:   origin,
		Platform: g.platform,
		Scale:    g.scale,
		Mocks:    g.mocks,
	}
}

func (g *Graph) uidFor(p string) string {
	if rel, ok := strings.CutPrefix(p, strings.TrimSuffix(g.project.Root, "/")+"/"); ok {
		return rel
	}
	return p
}

// addNode stores n unless a node for the path already exists, in which case
// the existing one is returned.
func (g *Graph) addNode(n *Node) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.nodes[n.path]; ok {
		return existing
	}
	g.nodes[n.path] = n
	metrics.RecordNodeCreated()
	return n
}

// GetNode returns the node for path or an error wrapping ErrNodeNotFound.
func (g *Graph) GetNode(path string) (*Node, error) {
	n, ok := g.MaybeGetNode(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}
	return n, nil
}

// MaybeGetNode returns the node for path, if any.
func (g *Graph) MaybeGetNode(path string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[path]
	return n, ok
}

// DeleteNode evicts the node for path. Memoized import resolutions of the
// remaining nodes are dropped since they may have gone through it.
func (g *Graph) DeleteNode(path string) bool {
	g.mu.Lock()
	_, ok := g.nodes[path]
	delete(g.nodes, path)
	remaining := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		remaining = append(remaining, n)
	}
	g.mu.Unlock()

	if ok {
		for _, n := range remaining {
			n.resetImports()
		}
	}
	return ok
}

// Nodes returns every node, sorted by path.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

// Pair is a resolved edge between two files.
type Pair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Stats summarizes the graph for visualization tooling.
type Stats struct {
	Nodes int    `json:"nodes"`
	Edges int    `json:"edges"`
	Pairs []Pair `json:"pairs"`
}

// Stats returns node and edge counts plus every source→target pair, sorted.
func (g *Graph) Stats() Stats {
	stats := Stats{Pairs: []Pair{}}
	for _, n := range g.Nodes() {
		stats.Nodes++
		seen := map[string]bool{}
		for _, dep := range n.Dependencies() {
			target, _ := n.DependencyPath(dep.Source)
			if seen[target] {
				continue
			}
			seen[target] = true
			stats.Pairs = append(stats.Pairs, Pair{Source: n.path, Target: target})
		}
	}
	sort.Slice(stats.Pairs, func(i, j int) bool {
		if stats.Pairs[i].Source != stats.Pairs[j].Source {
			return stats.Pairs[i].Source < stats.Pairs[j].Source
		}
		return stats.Pairs[i].Target < stats.Pairs[j].Target
	})
	stats.Edges = len(stats.Pairs)
	return stats
}

// report appends diagnostics to the collector. A warning is logged the
// first time the collector's cap refuses a record.
func (g *Graph) report(ctx context.Context, c *diagnostics.Collector, diags ...diagnostics.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	wasFull := c.Full()
	for _, d := range diags {
		metrics.RecordDiagnostic(string(d.Category))
	}
	if !c.Add(diags...) && !wasFull {
		ctxlog.FromContext(ctx).Warn("Diagnostics limit reached, further diagnostics are dropped.",
			"kept", c.Len(),
		)
	}
}

// Validate orders the graph reachable from root and resolves the imports of
// every file in that order, reporting what it finds to c.
func (g *Graph) Validate(ctx context.Context, root *Node, c *diagnostics.Collector) {
	g.validate(ctx, []*Node{root}, c)
}

func (g *Graph) validate(ctx context.Context, roots []*Node, c *diagnostics.Collector) {
	checked := map[string]bool{}
	reported := map[string]bool{}
	for _, root := range roots {
		order := root.GetDependencyOrder()
		for _, d := range order.Diagnostics {
			// Overlapping roots find the same cycles.
			if !reported[d.String()] {
				reported[d.String()] = true
				g.report(ctx, c, d)
			}
		}
		for _, p := range order.Files {
			if checked[p] {
				continue
			}
			checked[p] = true
			n, ok := g.MaybeGetNode(p)
			if !ok {
				continue
			}
			g.report(ctx, c, n.ResolveImports().Diagnostics...)
		}
	}
}
