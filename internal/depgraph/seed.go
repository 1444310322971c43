package depgraph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rome/tools-sub007/internal/analysis"
	"github.com/rome/tools-sub007/internal/ctxlog"
	"github.com/rome/tools-sub007/internal/diagnostics"
	"github.com/rome/tools-sub007/internal/metrics"
	"github.com/rome/tools-sub007/internal/resolver"
)

// SeedOptions controls a Seed call.
type SeedOptions struct {
	// Paths are the entry points, resolved against the project root.
	Paths []string
	// AllowMissing skips entry points that do not exist instead of failing.
	AllowMissing bool
	// Validate orders every root and checks imports once seeding produced
	// no diagnostics.
	Validate bool
	// Diagnostics receives every problem found. A nil collector is replaced
	// by an unlimited private one.
	Diagnostics *diagnostics.Collector
}

// visitSet records the paths a single Seed call has already descended into.
type visitSet struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newVisitSet() *visitSet {
	return &visitSet{seen: map[string]bool{}}
}

// first marks p and reports whether it was unmarked.
func (v *visitSet) first(p string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen[p] {
		return false
	}
	v.seen[p] = true
	return true
}

// seedItem is a unit of work: make sure a node exists for path with at
// least the given requirements.
type seedItem struct {
	path     string
	all      bool
	async    bool
	ancestry []string
}

// Seed analyzes the entry points and everything they transitively depend on.
// Work runs in rounds bounded by the project's concurrency: the first round
// holds the roots, each following round the dependencies discovered by the
// previous one, until no new work appears.
func (g *Graph) Seed(ctx context.Context, opts SeedOptions) (err error) {
	start := time.Now()
	defer func() { metrics.RecordSeed(start, err) }()

	logger := ctxlog.FromContext(ctx)
	collector := opts.Diagnostics
	if collector == nil {
		collector = diagnostics.NewCollector(0)
	}

	reported := collector.Total()

	roots, err := g.resolveRoots(ctx, opts)
	if err != nil {
		return err
	}
	logger.Info("Seeding dependency graph.", "roots", len(roots))

	queue := make([]seedItem, 0, len(roots))
	for _, root := range roots {
		queue = append(queue, seedItem{path: root, all: true})
	}
	visited := newVisitSet()
	rounds := 0
	for len(queue) > 0 {
		rounds++
		if queue, err = g.runRound(ctx, queue, visited, collector); err != nil {
			return err
		}
	}

	logger.Info("Dependency graph seeded.",
		"roots", len(roots),
		"nodes", len(g.Nodes()),
		"rounds", rounds,
		"diagnostics", collector.Len(),
		"duration", time.Since(start),
	)

	// Only this call's diagnostics block validation; the collector may be shared.
	if opts.Validate && collector.Total() == reported {
		nodes := make([]*Node, 0, len(roots))
		for _, root := range roots {
			if n, ok := g.MaybeGetNode(root); ok {
				nodes = append(nodes, n)
			}
		}
		g.validate(ctx, nodes, collector)
	}
	return nil
}

func (g *Graph) resolveRoots(ctx context.Context, opts SeedOptions) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	roots := make([]string, 0, len(opts.Paths))
	seen := map[string]bool{}
	for _, p := range opts.Paths {
		res, err := g.resolver.ResolveEntryAssert(ctx, g.query(p, g.project.Root))
		if err != nil {
			if opts.AllowMissing && res.Status == resolver.StatusMissing {
				logger.Warn("Skipping missing entry point.", "path", p)
				continue
			}
			return nil, fmt.Errorf("failed to resolve entry point: %w", err)
		}
		if !seen[res.Path] {
			seen[res.Path] = true
			roots = append(roots, res.Path)
		}
	}
	return roots, nil
}

func (g *Graph) runRound(ctx context.Context, queue []seedItem, visited *visitSet, c *diagnostics.Collector) ([]seedItem, error) {
	var (
		mu   sync.Mutex
		next []seedItem
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.project.Concurrency)
	for _, item := range queue {
		eg.Go(func() error {
			children, err := g.ensureNode(egCtx, item, visited, c)
			if err != nil {
				return err
			}
			mu.Lock()
			next = append(next, children...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return next, nil
}

// ensureNode creates the node for item.path under its path lock, or merges
// the item's requirements into the existing node. It returns the work the
// node's edges generate: all of them the first time this Seed call reaches
// the node, and again whenever its requirements are raised.
func (g *Graph) ensureNode(ctx context.Context, item seedItem, visited *visitSet, c *diagnostics.Collector) ([]seedItem, error) {
	unlock, err := g.locker.Lock(ctx, item.path)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", item.path, err)
	}
	defer unlock()

	if n, ok := g.MaybeGetNode(item.path); ok {
		raisedAll := n.SetAll(item.all)
		raisedSync := n.SetUsedAsync(item.async)
		// Descending on first visit recreates evicted descendants and waits
		// for nodes another Seed call is still building.
		if !visited.first(n.path) && !raisedAll && !raisedSync {
			return nil, nil
		}
		return n.children(item.ancestry), nil
	}
	visited.first(item.path)

	n := g.buildNode(ctx, item, c)
	n = g.addNode(n)
	ctxlog.FromContext(ctx).Debug("Created node.",
		"path", n.path,
		"dependencies", len(n.Dependencies()),
		"all", n.All(),
		"async", n.Async(),
	)
	return n.children(item.ancestry), nil
}

func (g *Graph) buildNode(ctx context.Context, item seedItem, c *diagnostics.Collector) *Node {
	a, err := g.analyzer.Analyze(ctx, item.path)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Analysis failed.", "path", item.path, "error", err)
		g.report(ctx, c, diagnostics.Diagnostic{
			Category: diagnostics.CategoryAnalysisFailed,
			Message:  err.Error(),
			Location: diagnostics.Location{Path: item.path},
		})
		a = &analysis.Analysis{TopLevelLocalBindings: map[string]diagnostics.Location{}}
	}

	n := newNode(g, item.path, a, item.all, item.async)
	for _, dep := range a.Dependencies {
		if g.project.IsExternal(dep.Source) {
			continue
		}
		q := g.query(dep.Source, item.path)
		res := g.resolver.Resolve(ctx, q)
		if res.Found() {
			n.AddDependency(dep.Source, res.Path)
			continue
		}
		if dep.Optional {
			continue
		}
		g.report(ctx, c, g.resolutionDiagnostic(ctx, q, res, dep, item.ancestry))
	}
	return n
}

func (g *Graph) resolutionDiagnostic(ctx context.Context, q resolver.Query, res resolver.Result, dep analysis.Dependency, ancestry []string) diagnostics.Diagnostic {
	d := diagnostics.Diagnostic{
		Category: resolver.CategoryFor(res.Status),
		Location: dep.Loc,
	}
	switch res.Status {
	case resolver.StatusUnsupported:
		d.Message = fmt.Sprintf("Unsupported specifier %q", dep.Source)
	case resolver.StatusFetchError:
		d.Message = fmt.Sprintf("Failed to fetch %q", dep.Source)
	default:
		d.Message = fmt.Sprintf("Cannot find %q", dep.Source)
	}
	for _, advice := range append(append([]string(nil), res.Advice...), g.resolver.Suggest(ctx, q, res)...) {
		d.Advice = append(d.Advice, diagnostics.Advice{Message: advice})
	}
	if len(ancestry) > 0 {
		d.Advice = append(d.Advice, diagnostics.Advice{
			Message: "Imported through:",
			List:    append(append([]string(nil), ancestry...), q.Origin),
		})
	}
	return d
}
