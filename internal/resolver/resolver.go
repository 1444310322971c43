package resolver

import (
	"context"
	"fmt"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rome/tools-sub007/internal/config"
	"github.com/rome/tools-sub007/internal/ctxlog"
	"github.com/rome/tools-sub007/internal/metrics"
	"github.com/rome/tools-sub007/internal/vfs"
)

// DefaultCacheSize bounds the number of cached resolution results.
const DefaultCacheSize = 16384

// Fetcher downloads remote modules into the vendor directory.
type Fetcher interface {
	// Fetch returns the local path holding the module at rawURL.
	Fetch(ctx context.Context, rawURL string) (string, error)
	// SourceURL maps a vendored file back to the URL it was fetched from.
	SourceURL(path string) (string, bool)
}

// VirtualModules redirects module names to real files.
type VirtualModules interface {
	VirtualPath(name string) (string, bool)
}

// ProjectRegistry records which project owns a resolved entry.
type ProjectRegistry interface {
	RegisterProject(path string, project *config.Project)
}

// Options configures a Resolver. FS and Project are required.
type Options struct {
	FS      vfs.FS
	Project *config.Project
	// Fetcher is optional; without it remote specifiers fail to fetch.
	Fetcher Fetcher
	// Virtual defaults to the project's virtual module table.
	Virtual   VirtualModules
	Registry  ProjectRegistry
	CacheSize int
}

// Resolver resolves queries against a file system and a project. It is
// safe for concurrent use.
type Resolver struct {
	fs       vfs.FS
	project  *config.Project
	fetcher  Fetcher
	virtual  VirtualModules
	registry ProjectRegistry
	cache    *lru.Cache[Query, Result]
}

// New creates a Resolver.
func New(opts Options) (*Resolver, error) {
	if opts.FS == nil {
		return nil, fmt.Errorf("resolver requires a file system")
	}
	if opts.Project == nil {
		return nil, fmt.Errorf("resolver requires a project")
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[Query, Result](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution cache: %w", err)
	}
	virtual := opts.Virtual
	if virtual == nil {
		virtual = opts.Project
	}
	return &Resolver{
		fs:       opts.FS,
		project:  opts.Project,
		fetcher:  opts.Fetcher,
		virtual:  virtual,
		registry: opts.Registry,
		cache:    cache,
	}, nil
}

// Project returns the project the resolver was built for.
func (r *Resolver) Project() *config.Project {
	return r.project
}

// Resolve resolves q. Results are cached until Forget, except fetch errors,
// which may be transient; callers must not modify the returned Variants.
func (r *Resolver) Resolve(ctx context.Context, q Query) Result {
	if res, ok := r.cache.Get(q); ok {
		metrics.RecordCacheHit()
		return res
	}
	res := r.resolve(ctx, q)
	metrics.RecordResolution(res.Status.String())
	if res.Status != StatusFetchError {
		r.cache.Add(q, res)
	}
	ctxlog.FromContext(ctx).Debug("Resolved specifier.",
		"source", q.Source,
		"origin", q.Origin,
		"status", res.Status.String(),
		"path", res.Path,
		"variants", res.Variants,
	)
	return res
}

// ResolveAssert is Resolve for call sites that require a file. Any other
// outcome becomes a *ResolveError carrying suggestions.
func (r *Resolver) ResolveAssert(ctx context.Context, q Query) (Result, error) {
	res := r.Resolve(ctx, q)
	if res.Found() {
		return res, nil
	}
	advice := append(append([]string(nil), res.Advice...), r.Suggest(ctx, q, res)...)
	return res, &ResolveError{Query: q, Result: res, Advice: advice}
}

// ResolveEntry resolves an entry point: bare specifiers fall back to
// path resolution when no module matches.
func (r *Resolver) ResolveEntry(ctx context.Context, q Query) Result {
	q.Entry = true
	return r.Resolve(ctx, q)
}

// ResolveEntryAssert is ResolveEntry with ResolveAssert semantics. A found
// entry is registered with the project registry.
func (r *Resolver) ResolveEntryAssert(ctx context.Context, q Query) (Result, error) {
	q.Entry = true
	res, err := r.ResolveAssert(ctx, q)
	if err != nil {
		return res, err
	}
	if r.registry != nil {
		r.registry.RegisterProject(res.Path, r.project)
	}
	return res, nil
}

// Forget drops every cached result.
func (r *Resolver) Forget() {
	r.cache.Purge()
}

func (r *Resolver) resolve(ctx context.Context, q Query) Result {
	source := q.Source
	if source == "" {
		return missing()
	}
	if isRemote(source) {
		return r.resolveRemote(ctx, source)
	}
	if scheme, ok := urlScheme(source); ok {
		return Result{
			Status: StatusUnsupported,
			Advice: []string{fmt.Sprintf("the %s:// protocol is not supported, only http:// and https:// modules can be fetched", scheme)},
		}
	}

	if isPathLike(source) && !path.IsAbs(source) {
		if base, ok := r.remoteOrigin(q.Origin); ok {
			ref, err := joinURL(base, source)
			if err != nil {
				return Result{Status: StatusFetchError, Advice: []string{err.Error()}}
			}
			return r.resolveRemote(ctx, ref)
		}
	}

	dir := r.originDir(ctx, q.Origin)
	if isPathLike(source) {
		return r.resolvePath(ctx, q, absolute(dir, source), nil, 0, nil)
	}
	res := r.resolveModule(ctx, q, dir)
	if res.Status == StatusMissing && q.Entry {
		return r.resolvePath(ctx, q, path.Join(dir, source), nil, 0, nil)
	}
	return res
}

func (r *Resolver) resolveRemote(ctx context.Context, rawURL string) Result {
	if r.fetcher == nil {
		return Result{Status: StatusFetchError, Advice: []string{"remote modules are disabled for this project"}}
	}
	local, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return Result{Status: StatusFetchError, Advice: []string{err.Error()}}
	}
	return found(local, []Variant{VariantRemote})
}

func (r *Resolver) remoteOrigin(origin string) (string, bool) {
	if isRemote(origin) {
		return origin, true
	}
	if r.fetcher != nil {
		return r.fetcher.SourceURL(origin)
	}
	return "", false
}

// originDir returns the directory relative specifiers are resolved against.
func (r *Resolver) originDir(ctx context.Context, origin string) string {
	if origin == "" {
		return r.project.Root
	}
	if !path.IsAbs(origin) {
		origin = path.Join(r.project.Root, origin)
	}
	if r.fs.IsDirectory(ctx, origin) {
		return path.Clean(origin)
	}
	return path.Dir(origin)
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// urlScheme detects "<scheme>://" specifiers.
func urlScheme(source string) (string, bool) {
	scheme, _, ok := strings.Cut(source, "://")
	if !ok || scheme == "" {
		return "", false
	}
	for i, c := range scheme {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", false
		}
	}
	return scheme, true
}

func isPathLike(source string) bool {
	return source == "." || source == ".." ||
		strings.HasPrefix(source, "/") ||
		strings.HasPrefix(source, "./") ||
		strings.HasPrefix(source, "../")
}

func absolute(dir, source string) string {
	if path.IsAbs(source) {
		return path.Clean(source)
	}
	return path.Join(dir, source)
}
