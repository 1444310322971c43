package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rome/tools-sub007/internal/ctxlog"
	"github.com/rome/tools-sub007/internal/depgraph"
	"github.com/rome/tools-sub007/internal/diagnostics"
	"github.com/rome/tools-sub007/internal/graphfeed"
	"github.com/rome/tools-sub007/internal/resolver"
	"github.com/rome/tools-sub007/internal/watch"
)

// ErrProblems is returned by Run when the build reported diagnostics.
var ErrProblems = errors.New("problems found")

// Run builds the graph for the configured entry points and writes the report.
// In watch mode it rebuilds after every batch of file changes until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	var feed *graphfeed.Publisher
	if a.config.FeedURL != "" {
		var err error
		feed, err = graphfeed.Dial(ctx, a.config.FeedURL, graphfeed.Options{})
		if err != nil {
			return fmt.Errorf("failed to connect graph feed: %w", err)
		}
		defer feed.Close()
	}

	rep, err := a.build(ctx, feed)
	if err != nil {
		return err
	}
	if a.config.Watch {
		return a.watch(ctx, feed)
	}

	a.logger.Debug("App.Run method finished.")
	if n := len(rep.Diagnostics) + rep.Dropped; n > 0 {
		return fmt.Errorf("%w: %d diagnostic(s)", ErrProblems, n)
	}
	return nil
}

// build seeds the graph, orders every root and writes the report.
func (a *App) build(ctx context.Context, feed *graphfeed.Publisher) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	roots, err := a.resolveEntries(ctx)
	if err != nil {
		return nil, err
	}
	collector := diagnostics.NewCollector(a.project.MaxDiagnostics)
	err = a.graph.Seed(ctx, depgraph.SeedOptions{
		Paths:        roots,
		AllowMissing: a.config.AllowMissing,
		Validate:     a.config.Validate,
		Diagnostics:  collector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}

	rep := &Report{Project: a.project.Name}
	for _, root := range roots {
		entry, err := a.orderRoot(root, collector)
		if err != nil {
			return nil, err
		}
		rep.Entries = append(rep.Entries, entry)
	}
	rep.Diagnostics = collector.Diagnostics()
	rep.Dropped = collector.Dropped()
	rep.Stats = a.graph.Stats()

	if err := rep.Write(a.outW); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	if feed != nil {
		payload := graphfeed.NewPayload(a.project.Name, roots, rep.Stats, time.Now())
		if err := feed.Publish(ctx, payload); err != nil {
			logger.Warn("Failed to publish graph stats.", "error", err)
		}
	}
	return rep, nil
}

// resolveEntries resolves the configured entry points to files and registers
// each one as owned by the project. Missing entries are skipped when allowed.
func (a *App) resolveEntries(ctx context.Context) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	roots := make([]string, 0, len(a.config.Entries))
	for _, entry := range a.config.Entries {
		q := resolver.Query{
			Source:   entry,
			Origin:   a.project.Root,
			Platform: a.config.Platform,
			Scale:    a.config.Scale,
			Mocks:    a.config.Mocks,
		}
		res := a.resolver.ResolveEntry(ctx, q)
		if !res.Found() {
			if a.config.AllowMissing && res.Status == resolver.StatusMissing {
				logger.Warn("Skipping missing entry point.", "entry", entry)
				continue
			}
			return nil, fmt.Errorf("failed to resolve entry point: %w", &resolver.ResolveError{Query: q, Result: res, Advice: a.resolver.Suggest(ctx, q, res)})
		}
		a.projects.RegisterProject(res.Path, a.project)
		roots = append(roots, res.Path)
	}
	return roots, nil
}

// orderRoot computes the execution order of root. Without validation the
// order's own diagnostics have not been collected yet, so they are added here.
func (a *App) orderRoot(root string, c *diagnostics.Collector) (EntryReport, error) {
	node, err := a.graph.GetNode(root)
	if err != nil {
		return EntryReport{}, err
	}
	order, err := a.graph.NewOrderer().Order(root)
	if err != nil {
		return EntryReport{}, err
	}
	if !a.config.Validate {
		c.Add(order.Diagnostics...)
	}

	entry := EntryReport{Root: node.UID(), Awaits: order.FirstTopAwaitLocations}
	for _, p := range order.Files {
		if n, ok := a.graph.MaybeGetNode(p); ok {
			entry.Files = append(entry.Files, n.UID())
		}
	}
	return entry, nil
}

// watch rebuilds on file changes until ctx is done.
func (a *App) watch(ctx context.Context, feed *graphfeed.Publisher) error {
	w, err := watch.New(a.project.Root, func(ctx context.Context, changes []watch.Change) {
		a.applyChanges(ctx, changes)
		if _, err := a.build(ctx, feed); err != nil {
			ctxlog.FromContext(ctx).Error("Rebuild failed.", "error", err)
		}
	}, watch.Options{})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()
	return w.Run(ctx)
}

// applyChanges evicts every changed file from the graph and drops the
// cached resolutions, which may depend on files that appeared or vanished.
func (a *App) applyChanges(ctx context.Context, changes []watch.Change) {
	logger := ctxlog.FromContext(ctx)
	for _, change := range changes {
		a.fs.Forget(change.Path)
		if a.graph.DeleteNode(change.Path) {
			logger.Debug("Evicted changed file.", "path", change.Path, "op", change.Op.String())
		}
	}
	a.resolver.Forget()
	logger.Info("Rebuilding after file changes.", "changes", len(changes))
}
