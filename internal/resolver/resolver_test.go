package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rome/tools-sub007/internal/config"
	"github.com/rome/tools-sub007/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "/app"

func newTestResolver(t *testing.T, files map[string]string, configure func(p *config.Project)) (*Resolver, *vfs.Memory) {
	t.Helper()
	mem := vfs.NewMemory()
	mem.AddDir(root)
	for p, content := range files {
		mem.AddFile(p, content)
	}
	project := config.Default(root)
	project.Platforms["ios"] = []string{"native"}
	project.Platforms["android"] = []string{"native"}
	if configure != nil {
		configure(project)
		project.ApplyDefaults()
	}
	r, err := New(Options{FS: mem, Project: project})
	require.NoError(t, err)
	return r, mem
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Project: config.Default(root)})
	assert.Error(t, err)
	_, err = New(Options{FS: vfs.NewMemory()})
	assert.Error(t, err)
}

func TestResolve_PlatformIndex(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{
		"/app/src/index.js":     "",
		"/app/src/index.ios.js": "",
	}, nil)
	ctx := context.Background()

	res := r.Resolve(ctx, Query{Source: "./index", Origin: "/app/src"})
	require.True(t, res.Found())
	assert.Equal(t, "/app/src/index.js", res.Path)
	assert.Equal(t, []Variant{VariantImplicitExtension}, res.Variants)

	res = r.Resolve(ctx, Query{Source: "./index", Origin: "/app/src", Platform: "ios"})
	require.True(t, res.Found())
	assert.Equal(t, "/app/src/index.ios.js", res.Path)
	assert.Equal(t, []Variant{VariantPlatform, VariantImplicitExtension}, res.Variants)

	res = r.Resolve(ctx, Query{Source: "./index", Origin: "/app/src", Platform: "android"})
	require.True(t, res.Found())
	assert.Equal(t, "/app/src/index.js", res.Path)
}

func TestResolve_PlatformAliasAndKnownExtension(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{
		"/app/button.js":        "",
		"/app/button.native.js": "",
	}, nil)
	ctx := context.Background()

	res := r.Resolve(ctx, Query{Source: "./button", Origin: "/app/main.js", Platform: "ios"})
	assert.Equal(t, "/app/button.native.js", res.Path)

	// An exact file wins over its platform variant.
	res = r.Resolve(ctx, Query{Source: "./button.js", Origin: "/app/main.js", Platform: "ios"})
	assert.Equal(t, "/app/button.js", res.Path)
	assert.Empty(t, res.Variants)
}

func TestResolve_Scale(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{
		"/app/logo@1x.png": "",
		"/app/logo@2x.png": "",
	}, func(p *config.Project) {
		p.DefaultScale = 3
	})
	ctx := context.Background()

	res := r.Resolve(ctx, Query{Source: "./logo.png", Origin: root})
	require.True(t, res.Found())
	assert.Equal(t, "/app/logo@2x.png", res.Path)
	assert.Equal(t, []Variant{VariantScale}, res.Variants)

	res = r.Resolve(ctx, Query{Source: "./logo.png", Origin: root, Scale: 1})
	assert.Equal(t, "/app/logo@1x.png", res.Path)
}

func TestResolve_Strict(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{"/app/util.ts": ""}, nil)
	ctx := context.Background()

	res := r.Resolve(ctx, Query{Source: "./util", Origin: root, Strict: true})
	assert.Equal(t, StatusMissing, res.Status)

	res = r.Resolve(ctx, Query{Source: "./util", Origin: root})
	assert.Equal(t, "/app/util.ts", res.Path)

	_, err := r.ResolveAssert(ctx, Query{Source: "./util", Origin: root, Strict: true})
	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Contains(t, resolveErr.Advice, "did you forget the file extension? /app/util.ts exists")
}

func TestResolve_RequestedKind(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{
		"/app/lib.js":          "",
		"/app/widget/index.js": "",
	}, nil)
	ctx := context.Background()

	res := r.Resolve(ctx, Query{Source: "./lib.js", Origin: root, RequestedKind: KindPackage})
	assert.Equal(t, StatusMissing, res.Status)

	_, err := r.ResolveAssert(ctx, Query{Source: "./lib.js", Origin: root, RequestedKind: KindPackage})
	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Contains(t, resolveErr.Advice, "found a file at /app/lib.js but a package was requested")

	res = r.Resolve(ctx, Query{Source: "./widget", Origin: root, RequestedKind: KindDirectory})
	assert.Equal(t, "/app/widget", res.Path)

	res = r.Resolve(ctx, Query{Source: "./widget", Origin: root, RequestedKind: KindPackage})
	assert.Equal(t, "/app/widget/index.js", res.Path)
	assert.Equal(t, []Variant{VariantImplicitIndex, VariantImplicitExtension}, res.Variants)
}

func TestResolve_DirectoryManifest(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{
		"/app/kit/package.json": `{
			"exports": {".": {"ios": "./lib/entry.ios.js", "default": "./lib/entry.js"}}
		}`,
		"/app/kit/lib/entry.js":     "",
		"/app/kit/lib/entry.ios.js": "",
		"/app/mains/package.json":   `{"main": "./lib/main", "android:main": "./lib/droid.js"}`,
		"/app/mains/lib/main.js":    "",
		"/app/mains/lib/droid.js":   "",
		"/app/broken/package.json":  `{"main": "./nope.js"}`,
		"/app/broken/index.js":      "",
	}, nil)
	ctx := context.Background()

	testCases := []struct {
		source   string
		platform string
		want     string
	}{
		{"./kit", "", "/app/kit/lib/entry.js"},
		{"./kit", "ios", "/app/kit/lib/entry.ios.js"},
		{"./kit", "android", "/app/kit/lib/entry.js"},
		{"./mains", "", "/app/mains/lib/main.js"},
		{"./mains", "android", "/app/mains/lib/droid.js"},
		{"./broken", "", "/app/broken/index.js"},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s@%s", tc.source, tc.platform), func(t *testing.T) {
			res := r.Resolve(ctx, Query{Source: tc.source, Origin: root, Platform: tc.platform})
			require.True(t, res.Found(), "status %s", res.Status)
			assert.Equal(t, tc.want, res.Path)
		})
	}
}

func TestResolve_SelfReferencingManifest(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{
		"/app/dot/package.json":     `{"main": "."}`,
		"/app/dot/index.js":         "",
		"/app/slash/package.json":   `{"main": "./"}`,
		"/app/slash/index.ts":       "",
		"/app/exports/package.json": `{"exports": {".": "./"}}`,
		"/app/exports/index.js":     "",
		"/app/ping/package.json":    `{"main": "../pong"}`,
		"/app/ping/index.js":        "",
		"/app/pong/package.json":    `{"main": "../ping"}`,
		"/app/pong/index.js":        "",
		"/app/empty/package.json":   `{"main": "."}`,
	}, nil)
	ctx := context.Background()

	testCases := []struct {
		source string
		want   string
	}{
		{"./dot", "/app/dot/index.js"},
		{"./slash", "/app/slash/index.ts"},
		{"./exports", "/app/exports/index.js"},
		{"./ping", "/app/ping/index.js"},
		{"./pong", "/app/pong/index.js"},
	}
	for _, tc := range testCases {
		t.Run(tc.source, func(t *testing.T) {
			res := r.Resolve(ctx, Query{Source: tc.source, Origin: root})
			require.True(t, res.Found(), "status %s", res.Status)
			assert.Equal(t, tc.want, res.Path)
		})
	}

	res := r.Resolve(ctx, Query{Source: "./empty", Origin: root})
	assert.Equal(t, StatusMissing, res.Status)
}

func TestResolve_Modules(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{
		"/app/node_modules/lodash/package.json":          `{"main": "lodash.js"}`,
		"/app/node_modules/lodash/lodash.js":             "",
		"/app/node_modules/lodash/fp.js":                 "",
		"/app/node_modules/@scope/ui/package.json":       `{"exports": {".": "./dist/index.js", "./theme": "./dist/theme.js", "./icons/*": "./dist/icons/*.js"}}`,
		"/app/node_modules/@scope/ui/dist/index.js":      "",
		"/app/node_modules/@scope/ui/dist/theme.js":      "",
		"/app/node_modules/@scope/ui/dist/internal.js":   "",
		"/app/node_modules/@scope/ui/dist/icons/star.js": "",
		"/app/node_modules/sealed/package.json":          `{"main": "main.js", "exports": false}`,
		"/app/node_modules/sealed/main.js":               "",
		"/app/node_modules/sealed/deep.js":               "",
		"/app/src/node_modules/lodash/package.json":      `{"main": "nested.js"}`,
		"/app/src/node_modules/lodash/nested.js":         "",
		"/app/src/feature/main.js":                       "",
	}, nil)
	ctx := context.Background()
	origin := "/app/src/feature/main.js"

	testCases := []struct {
		source string
		origin string
		status Status
		want   string
	}{
		{"lodash", "/app/main.js", StatusFound, "/app/node_modules/lodash/lodash.js"},
		{"lodash/fp", "/app/main.js", StatusFound, "/app/node_modules/lodash/fp.js"},
		{"lodash", origin, StatusFound, "/app/src/node_modules/lodash/nested.js"},
		{"@scope/ui", origin, StatusFound, "/app/node_modules/@scope/ui/dist/index.js"},
		{"@scope/ui/theme", origin, StatusFound, "/app/node_modules/@scope/ui/dist/theme.js"},
		{"@scope/ui/icons/star", origin, StatusFound, "/app/node_modules/@scope/ui/dist/icons/star.js"},
		{"@scope/ui/dist/internal", origin, StatusMissing, ""},
		{"sealed", origin, StatusFound, "/app/node_modules/sealed/main.js"},
		{"sealed/deep", origin, StatusMissing, ""},
		{"react", origin, StatusMissing, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.source, func(t *testing.T) {
			res := r.Resolve(ctx, Query{Source: tc.source, Origin: tc.origin})
			assert.Equal(t, tc.status, res.Status)
			assert.Equal(t, tc.want, res.Path)
			if tc.status == StatusFound {
				assert.True(t, res.Has(VariantPackage))
			}
		})
	}
}

func TestSplitModule(t *testing.T) {
	testCases := map[string][2]string{
		"react":          {"react", ""},
		"react/jsx":      {"react", "jsx"},
		"@scope/pkg":     {"@scope/pkg", ""},
		"@scope/pkg/a/b": {"@scope/pkg", "a/b"},
		"@scope":         {"@scope", ""},
		"lodash/fp/get":  {"lodash", "fp/get"},
	}
	for source, want := range testCases {
		name, sub := splitModule(source)
		assert.Equal(t, want, [2]string{name, sub}, source)
	}
}

func TestResolve_ProjectPackagesVirtualAndMocks(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{
		"/app/packages/shared/index.ts":      "",
		"/app/packages/shared/colors.ts":     "",
		"/app/internal/env.js":               "",
		"/app/src/__mocks__/fetcher.js":      "",
		"/app/node_modules/fetcher/index.js": "",
	}, func(p *config.Project) {
		p.Packages = map[string]string{"shared": "packages/shared"}
		p.VirtualModules = map[string]string{"virtual:env": "internal/env.js"}
	})
	ctx := context.Background()
	origin := "/app/src/deep/main.js"

	res := r.Resolve(ctx, Query{Source: "shared", Origin: origin})
	assert.Equal(t, "/app/packages/shared/index.ts", res.Path)

	res = r.Resolve(ctx, Query{Source: "shared/colors", Origin: origin})
	assert.Equal(t, "/app/packages/shared/colors.ts", res.Path)

	res = r.Resolve(ctx, Query{Source: "virtual:env", Origin: origin})
	assert.Equal(t, "/app/internal/env.js", res.Path)
	assert.Equal(t, []Variant{VariantVirtual}, res.Variants)

	res = r.Resolve(ctx, Query{Source: "fetcher", Origin: origin})
	assert.Equal(t, "/app/node_modules/fetcher/index.js", res.Path)

	res = r.Resolve(ctx, Query{Source: "fetcher", Origin: origin, Mocks: true})
	assert.Equal(t, "/app/src/__mocks__/fetcher.js", res.Path)
	assert.Equal(t, []Variant{VariantMock, VariantImplicitExtension}, res.Variants)
}

func TestResolveEntry(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{"/app/src/main.js": ""}, nil)
	ctx := context.Background()

	res := r.Resolve(ctx, Query{Source: "src/main", Origin: root})
	assert.Equal(t, StatusMissing, res.Status)

	res = r.ResolveEntry(ctx, Query{Source: "src/main", Origin: root})
	assert.Equal(t, "/app/src/main.js", res.Path)
}

func TestResolveEntryAssert_RegistersProject(t *testing.T) {
	mem := vfs.NewMemory()
	mem.AddFile("/app/main.js", "")
	project := config.Default(root)
	projects := NewProjects()
	r, err := New(Options{FS: mem, Project: project, Registry: projects})
	require.NoError(t, err)

	res, err := r.ResolveEntryAssert(context.Background(), Query{Source: "./main.js", Origin: root})
	require.NoError(t, err)
	assert.Equal(t, "/app/main.js", res.Path)

	owner, ok := projects.Owner("/app/main.js")
	require.True(t, ok)
	assert.Same(t, project, owner)
	owner, ok = projects.Owner("/app/lib/other.js")
	require.True(t, ok)
	assert.Same(t, project, owner)
	_, ok = projects.Owner("/elsewhere/x.js")
	assert.False(t, ok)
	assert.Equal(t, []string{"/app/main.js"}, projects.Entries())

	_, err = r.ResolveEntryAssert(context.Background(), Query{Source: "./absent.js", Origin: root})
	assert.Error(t, err)
	assert.Len(t, projects.Entries(), 1)
}

func TestResolveAssert_Suggestions(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{
		"/app/src/button.js":                "",
		"/app/src/camera.ios.js":            "",
		"/app/node_modules/lodash/index.js": "",
	}, nil)
	ctx := context.Background()

	_, err := r.ResolveAssert(ctx, Query{Source: "./buton", Origin: "/app/src/main.js"})
	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, StatusMissing, resolveErr.Result.Status)
	assert.Contains(t, resolveErr.Advice, "did you mean /app/src/button.js?")
	assert.Contains(t, err.Error(), `cannot find "./buton" from /app/src/main.js`)

	_, err = r.ResolveAssert(ctx, Query{Source: "./camera", Origin: "/app/src/main.js"})
	require.ErrorAs(t, err, &resolveErr)
	assert.Contains(t, resolveErr.Advice, `only found for platform "ios": /app/src/camera.ios.js`)

	_, err = r.ResolveAssert(ctx, Query{Source: "lodahs", Origin: "/app/src/main.js"})
	require.ErrorAs(t, err, &resolveErr)
	assert.Contains(t, resolveErr.Advice, `did you mean the package "lodash"?`)

	// The suggestion pass must not change the decision.
	res := r.Resolve(ctx, Query{Source: "./camera", Origin: "/app/src/main.js"})
	assert.Equal(t, StatusMissing, res.Status)
}

func TestResolve_Cache(t *testing.T) {
	r, mem := newTestResolver(t, map[string]string{"/app/a.js": ""}, nil)
	ctx := context.Background()
	q := Query{Source: "./a", Origin: root}

	require.True(t, r.Resolve(ctx, q).Found())
	mem.Remove("/app/a.js")
	assert.True(t, r.Resolve(ctx, q).Found(), "served from cache")

	r.Forget()
	assert.Equal(t, StatusMissing, r.Resolve(ctx, q).Status)
}

type fakeFetcher struct {
	files   map[string]string
	sources map[string]string
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	p, ok := f.files[rawURL]
	if !ok {
		return "", fmt.Errorf("404 for %s", rawURL)
	}
	f.sources[p] = rawURL
	return p, nil
}

func (f *fakeFetcher) SourceURL(p string) (string, bool) {
	u, ok := f.sources[p]
	return u, ok
}

func TestResolve_Remote(t *testing.T) {
	mem := vfs.NewMemory()
	mem.AddFile("/app/.vendor/cdn.test/aaa/mod.js", "")
	mem.AddFile("/app/.vendor/cdn.test/bbb/util.js", "")
	fetcher := &fakeFetcher{
		files: map[string]string{
			"https://cdn.test/pkg/mod.js":      "/app/.vendor/cdn.test/aaa/mod.js",
			"https://cdn.test/pkg/lib/util.js": "/app/.vendor/cdn.test/bbb/util.js",
		},
		sources: map[string]string{},
	}
	r, err := New(Options{FS: mem, Project: config.Default(root), Fetcher: fetcher})
	require.NoError(t, err)
	ctx := context.Background()

	res := r.Resolve(ctx, Query{Source: "https://cdn.test/pkg/mod.js", Origin: "/app/main.js"})
	require.True(t, res.Found())
	assert.Equal(t, "/app/.vendor/cdn.test/aaa/mod.js", res.Path)
	assert.Equal(t, []Variant{VariantRemote}, res.Variants)

	// Relative specifiers inside a vendored module resolve against its URL.
	res = r.Resolve(ctx, Query{Source: "./lib/util.js", Origin: "/app/.vendor/cdn.test/aaa/mod.js"})
	require.True(t, res.Found())
	assert.Equal(t, "/app/.vendor/cdn.test/bbb/util.js", res.Path)

	res = r.Resolve(ctx, Query{Source: "https://cdn.test/missing.js", Origin: "/app/main.js"})
	assert.Equal(t, StatusFetchError, res.Status)
	assert.Equal(t, []string{"404 for https://cdn.test/missing.js"}, res.Advice)

	_, err = r.ResolveAssert(ctx, Query{Source: "https://cdn.test/missing.js", Origin: "/app/main.js"})
	var resolveErr *ResolveError
	require.True(t, errors.As(err, &resolveErr))
	assert.Contains(t, err.Error(), "failed to fetch")

	// Fetch errors are not cached: the module is found once the remote serves it.
	mem.AddFile("/app/.vendor/cdn.test/ccc/missing.js", "")
	fetcher.files["https://cdn.test/missing.js"] = "/app/.vendor/cdn.test/ccc/missing.js"
	res = r.Resolve(ctx, Query{Source: "https://cdn.test/missing.js", Origin: "/app/main.js"})
	require.True(t, res.Found(), "status %s", res.Status)
	assert.Equal(t, "/app/.vendor/cdn.test/ccc/missing.js", res.Path)
}

func TestResolve_Unsupported(t *testing.T) {
	r, _ := newTestResolver(t, nil, nil)
	ctx := context.Background()

	res := r.Resolve(ctx, Query{Source: "ftp://example.com/x.js", Origin: root})
	assert.Equal(t, StatusUnsupported, res.Status)
	require.Len(t, res.Advice, 1)
	assert.Contains(t, res.Advice[0], "ftp://")

	res = r.Resolve(ctx, Query{Source: "https://example.com/x.js", Origin: root})
	assert.Equal(t, StatusFetchError, res.Status)
	assert.Equal(t, []string{"remote modules are disabled for this project"}, res.Advice)
}

func TestQueryHelpers(t *testing.T) {
	base := Query{Source: "./a", Origin: "/app/x.js", Platform: "ios", Scale: 2}
	derived := base.WithSource("./b").WithPlatform("web").WithKind(KindDirectory).WithStrict(true).WithOrigin("/app")

	want := Query{Source: "./b", Origin: "/app", Platform: "web", Scale: 2, RequestedKind: KindDirectory, Strict: true}
	if diff := cmp.Diff(want, derived); diff != "" {
		t.Errorf("derived query mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "./a", base.Source, "base query is unchanged")
	assert.Equal(t, "package", KindPackage.String())
}
