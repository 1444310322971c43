package resolver

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/rome/tools-sub007/internal/vfs"
)

// applied records which variant families a path has already been through.
type applied uint8

const (
	appliedPlatform applied = 1 << iota
	appliedExtension
	appliedScale
)

// resolvePath resolves an absolute path. Only the unmodified path (done == 0)
// may be treated as a directory. trail lists the directories whose manifest
// entries are being followed; a manifest is never followed twice on one trail.
func (r *Resolver) resolvePath(ctx context.Context, q Query, p string, variants []Variant, done applied, trail []string) Result {
	if q.RequestedKind == KindAny {
		if r.fs.IsFile(ctx, p) {
			return found(p, variants)
		}
		if res := r.resolveVariants(ctx, q, p, variants, done, trail); res.Status != StatusMissing {
			return res
		}
	}
	if done == 0 && r.fs.IsDirectory(ctx, p) {
		return r.resolveDirectory(ctx, q, p, variants, trail)
	}
	return missing()
}

func (r *Resolver) resolveVariants(ctx context.Context, q Query, p string, variants []Variant, done applied, trail []string) Result {
	if done&appliedPlatform == 0 {
		for _, platform := range r.project.PlatformAliases(q.Platform) {
			res := r.resolvePath(ctx, q, r.withSuffix(p, "."+platform), tag(variants, VariantPlatform), done|appliedPlatform, trail)
			if res.Status != StatusMissing {
				return res
			}
		}
	}
	if done&appliedExtension == 0 && !q.Strict && !r.project.HasExtension(p) {
		for _, ext := range r.project.Extensions {
			res := r.resolvePath(ctx, q, p+"."+ext, tag(variants, VariantImplicitExtension), done|appliedExtension, trail)
			if res.Status != StatusMissing {
				return res
			}
		}
	}
	if done&appliedScale == 0 {
		for scale := r.scale(q); scale >= 1; scale-- {
			res := r.resolvePath(ctx, q, r.withSuffix(p, fmt.Sprintf("@%dx", scale)), tag(variants, VariantScale), done|appliedScale, trail)
			if res.Status != StatusMissing {
				return res
			}
		}
	}
	return missing()
}

func (r *Resolver) resolveDirectory(ctx context.Context, q Query, dir string, variants []Variant, trail []string) Result {
	if q.RequestedKind == KindDirectory {
		return found(dir, variants)
	}
	// A manifest entry leading back to a directory on the trail ("main": ".",
	// or two packages pointing at each other) falls through to the index.
	following := slices.Contains(trail, dir)
	trail = append(slices.Clip(trail), dir)
	if m, ok := r.fs.Manifest(ctx, dir); ok && !following {
		if entry, ok := r.manifestEntry(m, q.Platform); ok {
			res := r.resolvePath(ctx, q.WithKind(KindAny), path.Join(dir, entry), variants, 0, trail)
			if res.Status != StatusMissing {
				return res
			}
		}
	}
	return r.resolvePath(ctx, q.WithKind(KindAny).WithStrict(false), path.Join(dir, "index"), tag(variants, VariantImplicitIndex), 0, trail)
}

// manifestEntry picks a package's preferred entry: the "." export for the
// platform, then "<platform>:main", then "main".
func (r *Resolver) manifestEntry(m *vfs.Manifest, platform string) (string, bool) {
	aliases := r.project.PlatformAliases(platform)
	if m.Exports.Declared() && !m.Exports.Disabled {
		if target, ok := m.Exports.Lookup(".", aliases...); ok {
			return target, true
		}
	}
	for _, alias := range aliases {
		if main, ok := m.PlatformMains[alias]; ok {
			return main, true
		}
	}
	if m.Main != "" {
		return m.Main, true
	}
	return "", false
}

// withSuffix inserts suffix before a known extension, or appends it.
func (r *Resolver) withSuffix(p, suffix string) string {
	if r.project.HasExtension(p) {
		ext := path.Ext(p)
		return strings.TrimSuffix(p, ext) + suffix + ext
	}
	return p + suffix
}

func (r *Resolver) scale(q Query) int {
	if q.Scale > 0 {
		return q.Scale
	}
	return r.project.DefaultScale
}
