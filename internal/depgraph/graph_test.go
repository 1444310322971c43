package depgraph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rome/tools-sub007/internal/analysis"
	"github.com/rome/tools-sub007/internal/config"
	"github.com/rome/tools-sub007/internal/diagnostics"
	"github.com/rome/tools-sub007/internal/resolver"
	"github.com/rome/tools-sub007/internal/testutil"
	"github.com/rome/tools-sub007/internal/vfs"
)

type fixture struct {
	fs       *vfs.Memory
	project  *config.Project
	analyzer *testutil.StaticAnalyzer
	graph    *Graph
}

func newFixture(t *testing.T, files ...string) *fixture {
	t.Helper()

	contents := map[string]string{}
	for _, f := range files {
		contents[f] = ""
	}
	fs, project := testutil.MemoryProject("/app", contents)
	res, err := resolver.New(resolver.Options{FS: fs, Project: project})
	require.NoError(t, err)

	analyzer := testutil.NewStaticAnalyzer()
	g, err := New(Options{Resolver: res, Analyzer: analyzer, Project: project})
	require.NoError(t, err)
	return &fixture{fs: fs, project: project, analyzer: analyzer, graph: g}
}

func (f *fixture) set(name string, a *analysis.Analysis) {
	f.analyzer.Set("/app/"+name, a)
}

func (f *fixture) seed(t *testing.T, opts SeedOptions) *diagnostics.Collector {
	t.Helper()
	if opts.Diagnostics == nil {
		opts.Diagnostics = diagnostics.NewCollector(0)
	}
	require.NoError(t, f.graph.Seed(context.Background(), opts))
	return opts.Diagnostics
}

func (f *fixture) node(t *testing.T, name string) *Node {
	t.Helper()
	n, err := f.graph.GetNode("/app/" + name)
	require.NoError(t, err)
	return n
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorContains(t, err, "resolver")
}

func TestSeed_BuildsGraph(t *testing.T) {
	f := newFixture(t, "a.js", "b.js", "c.js")
	f.set("a.js", &analysis.Analysis{Dependencies: []analysis.Dependency{testutil.Import("./b")}})
	f.set("b.js", &analysis.Analysis{Dependencies: []analysis.Dependency{testutil.Import("./c")}})

	c := f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}})
	assert.False(t, c.HasErrors())

	a := f.node(t, "a.js")
	assert.Equal(t, "a.js", a.UID())
	assert.True(t, a.All(), "roots need every export")
	target, ok := a.DependencyPath("./b")
	require.True(t, ok)
	assert.Equal(t, "/app/b.js", target)

	stats := f.graph.Stats()
	want := Stats{
		Nodes: 3,
		Edges: 2,
		Pairs: []Pair{
			{Source: "/app/a.js", Target: "/app/b.js"},
			{Source: "/app/b.js", Target: "/app/c.js"},
		},
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
}

func TestSeed_EntryWithoutExtension(t *testing.T) {
	f := newFixture(t, "index.js")
	f.seed(t, SeedOptions{Paths: []string{"./index"}})

	_, ok := f.graph.MaybeGetNode("/app/index.js")
	assert.True(t, ok)
}

func TestSeed_Idempotent(t *testing.T) {
	f := newFixture(t, "a.js", "b.js", "shared.js")
	f.set("a.js", &analysis.Analysis{Dependencies: []analysis.Dependency{testutil.Import("./shared")}})
	f.set("b.js", &analysis.Analysis{Dependencies: []analysis.Dependency{testutil.Import("./shared")}})

	t.Run("sequential", func(t *testing.T) {
		f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}})
		first := f.node(t, "shared.js")
		f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}})
		assert.Same(t, first, f.node(t, "shared.js"))
	})

	t.Run("concurrent", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				entry := "/app/a.js"
				if i%2 == 1 {
					entry = "/app/b.js"
				}
				err := f.graph.Seed(context.Background(), SeedOptions{Paths: []string{entry}})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		assert.Len(t, f.graph.Nodes(), 3)
		assert.Equal(t, 1, f.analyzer.Calls("/app/shared.js"))
		assert.Equal(t, 1, f.analyzer.Calls("/app/b.js"))
	})
}

func TestSeed_OptionalDependencies(t *testing.T) {
	optional := testutil.Import("./missing")
	optional.Optional = true
	required := testutil.Import("./missing")
	required.Loc = diagnostics.Location{Path: "/app/b.js", Line: 3, Column: 1}

	f := newFixture(t, "a.js", "b.js")
	f.set("a.js", &analysis.Analysis{Dependencies: []analysis.Dependency{optional}})
	f.set("b.js", &analysis.Analysis{Dependencies: []analysis.Dependency{required}})

	c := f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}})
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, f.node(t, "a.js").Dependencies())

	c = f.seed(t, SeedOptions{Paths: []string{"/app/b.js"}})
	diags := c.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.CategoryResolutionMissing, diags[0].Category)
	assert.Equal(t, 3, diags[0].Location.Line)
	assert.Contains(t, diags[0].Message, "./missing")
	assert.Empty(t, f.node(t, "b.js").Dependencies())
}

func TestSeed_SkipsExternals(t *testing.T) {
	f := newFixture(t, "a.js")
	f.project.Externals = []string{"react"}
	f.set("a.js", &analysis.Analysis{Dependencies: []analysis.Dependency{
		testutil.Import("react"),
		testutil.Import("react/jsx-runtime"),
		testutil.Import("node:fs"),
		testutil.Import("path"),
	}})

	c := f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}})
	assert.False(t, c.HasErrors())
	assert.Empty(t, f.node(t, "a.js").Dependencies())
}

func TestSeed_MissingRoot(t *testing.T) {
	f := newFixture(t, "a.js")

	err := f.graph.Seed(context.Background(), SeedOptions{Paths: []string{"/app/nope.js"}})
	var resolveErr *resolver.ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, resolver.StatusMissing, resolveErr.Result.Status)

	c := f.seed(t, SeedOptions{Paths: []string{"/app/nope.js", "/app/a.js"}, AllowMissing: true})
	assert.False(t, c.HasErrors())
	assert.Len(t, f.graph.Nodes(), 1)
}

func TestSeed_AnalysisFailure(t *testing.T) {
	f := newFixture(t, "a.js", "broken.js")
	f.set("a.js", &analysis.Analysis{Dependencies: []analysis.Dependency{testutil.Import("./broken")}})
	f.analyzer.Fail("/app/broken.js", errors.New("unexpected token"))

	c := f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}})
	diags := c.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.CategoryAnalysisFailed, diags[0].Category)
	assert.Contains(t, diags[0].Message, "unexpected token")

	broken := f.node(t, "broken.js")
	assert.Empty(t, broken.Analysis().Exports)
}

func TestSeed_FlagUpgrades(t *testing.T) {
	lazy := testutil.Import("./b")
	lazy.Async = true

	f := newFixture(t, "a.js", "b.js", "c.js", "d.js", "star.js")
	f.set("a.js", &analysis.Analysis{Dependencies: []analysis.Dependency{lazy}})
	f.set("b.js", &analysis.Analysis{Dependencies: []analysis.Dependency{testutil.Import("./d")}})
	f.set("c.js", &analysis.Analysis{Dependencies: []analysis.Dependency{testutil.Import("./b")}})

	f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}})
	assert.True(t, f.node(t, "b.js").Async())
	assert.True(t, f.node(t, "d.js").Async(), "reached only through a dynamic import")

	f.seed(t, SeedOptions{Paths: []string{"/app/c.js"}})
	assert.False(t, f.node(t, "b.js").Async())
	assert.False(t, f.node(t, "d.js").Async(), "a synchronous importer propagates down")

	t.Run("star export inherits all", func(t *testing.T) {
		f.set("star.js", &analysis.Analysis{
			Exports:      []analysis.Export{analysis.ExternalAllExport{Source: "./d"}},
			Dependencies: []analysis.Dependency{testutil.Import("./d")},
		})
		assert.False(t, f.node(t, "d.js").All())
		f.seed(t, SeedOptions{Paths: []string{"/app/star.js"}})
		assert.True(t, f.node(t, "d.js").All())
	})
}

func TestSeed_DiagnosticsCap(t *testing.T) {
	f := newFixture(t, "a.js", "b.js")
	f.set("a.js", &analysis.Analysis{Dependencies: []analysis.Dependency{
		testutil.Import("./missing-one"),
		testutil.Import("./missing-two"),
		testutil.Import("./b"),
	}})

	c := f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}, Diagnostics: diagnostics.NewCollector(1)})
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Dropped())
	_, ok := f.graph.MaybeGetNode("/app/b.js")
	assert.True(t, ok, "traversal continues past the cap")
}

func TestSeed_Validate(t *testing.T) {
	f := newFixture(t, "a.js", "b.js")
	f.set("a.js", &analysis.Analysis{Dependencies: []analysis.Dependency{testutil.Import("./b", "nope")}})
	f.set("b.js", &analysis.Analysis{Exports: []analysis.Export{testutil.Local("yes")}})

	c := f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}})
	assert.False(t, c.HasErrors(), "validation is opt-in")

	c = f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}, Validate: true})
	diags := c.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.CategoryUnknownExport, diags[0].Category)

	// Diagnostics from earlier calls on a shared collector do not block validation.
	shared := diagnostics.NewCollector(0)
	shared.Add(diagnostics.Diagnostic{Category: diagnostics.CategoryResolutionMissing, Message: "earlier"})
	f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}, Validate: true, Diagnostics: shared})
	assert.Equal(t, 2, shared.Len())
}

func TestGetNode_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.graph.GetNode("/app/ghost.js")
	assert.True(t, errors.Is(err, ErrNodeNotFound))

	_, ok := f.graph.MaybeGetNode("/app/ghost.js")
	assert.False(t, ok)
}

func TestDeleteNode(t *testing.T) {
	f := newFixture(t, "a.js", "b.js", "c.js")
	f.set("a.js", &analysis.Analysis{Dependencies: []analysis.Dependency{testutil.Import("./b", "y")}})
	f.set("b.js", &analysis.Analysis{
		Exports:      []analysis.Export{testutil.Local("y")},
		Dependencies: []analysis.Dependency{testutil.Import("./c", "x")},
	})
	f.set("c.js", &analysis.Analysis{Exports: []analysis.Export{testutil.Local("x")}})
	f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}})

	b := f.node(t, "b.js")
	assert.Empty(t, b.ResolveImports().Diagnostics)

	assert.True(t, f.graph.DeleteNode("/app/c.js"))
	assert.False(t, f.graph.DeleteNode("/app/c.js"))
	_, ok := f.graph.MaybeGetNode("/app/c.js")
	assert.False(t, ok)

	// c.js is two levels below the root; re-seeding the root must recreate it.
	f.set("c.js", &analysis.Analysis{Exports: []analysis.Export{testutil.Local("z")}})
	f.seed(t, SeedOptions{Paths: []string{"/app/a.js"}})

	c, ok := f.graph.MaybeGetNode("/app/c.js")
	require.True(t, ok, "evicted dependency was not recreated")
	assert.Equal(t, 2, f.analyzer.Calls("/app/c.js"))
	assert.Equal(t, 1, f.analyzer.Calls("/app/b.js"))
	assert.Same(t, c, b.dependencyNode("./c"))
	assert.Equal(t, []string{"/app/c.js", "/app/b.js", "/app/a.js"}, f.node(t, "a.js").GetDependencyOrder().Files)
	assert.Len(t, b.ResolveImports().Diagnostics, 1, "memoized resolution was dropped")
}

func TestSeed_ConcurrentSeedsSeeWholeGraph(t *testing.T) {
	f := newFixture(t, "a.js", "b.js", "c.js")
	f.set("a.js", &analysis.Analysis{Dependencies: []analysis.Dependency{testutil.Import("./b", "y")}})
	f.set("b.js", &analysis.Analysis{
		Exports:      []analysis.Export{testutil.Local("y")},
		Dependencies: []analysis.Dependency{testutil.Import("./c", "x")},
	})
	f.set("c.js", &analysis.Analysis{Exports: []analysis.Export{testutil.Local("x")}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.graph.Seed(context.Background(), SeedOptions{Paths: []string{"/app/a.js"}}))
			// Every Seed call returns only once the graph below its roots exists.
			_, ok := f.graph.MaybeGetNode("/app/c.js")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.analyzer.Calls("/app/c.js"))
}
