package resolver

import (
	"context"
	"path"
	"strings"
)

const modulesDir = "node_modules"

// splitModule separates a bare specifier into its package name and the
// subpath inside the package. Scoped names keep their scope.
func splitModule(source string) (name, subpath string) {
	if strings.HasPrefix(source, "@") {
		parts := strings.SplitN(source, "/", 3)
		if len(parts) < 2 {
			return source, ""
		}
		name = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			subpath = parts[2]
		}
		return name, subpath
	}
	name, subpath, _ = strings.Cut(source, "/")
	return name, subpath
}

func (r *Resolver) resolveModule(ctx context.Context, q Query, dir string) Result {
	name, subpath := splitModule(q.Source)

	if q.Mocks {
		for d := dir; ; d = path.Dir(d) {
			mock := path.Join(d, r.project.MocksDir, q.Source)
			if res := r.resolvePath(ctx, q, mock, []Variant{VariantMock}, 0, nil); res.Found() {
				return res
			}
			if d == "/" || d == "." {
				break
			}
		}
	}

	if target, ok := r.virtual.VirtualPath(q.Source); ok {
		return r.resolvePath(ctx, q.WithKind(KindAny), target, []Variant{VariantVirtual}, 0, nil)
	}

	if pkgDir, ok := r.project.Packages[name]; ok {
		return r.resolvePackage(ctx, q, pkgDir, subpath)
	}

	for d := dir; ; d = path.Dir(d) {
		if path.Base(d) != modulesDir {
			pkgDir := path.Join(d, modulesDir, name)
			if r.fs.IsDirectory(ctx, pkgDir) {
				if res := r.resolvePackage(ctx, q, pkgDir, subpath); res.Status != StatusMissing {
					return res
				}
			}
		}
		if d == "/" || d == "." {
			break
		}
	}
	return missing()
}

// resolvePackage resolves a subpath inside a package directory, honouring
// the manifest's "exports" restrictions.
func (r *Resolver) resolvePackage(ctx context.Context, q Query, pkgDir, subpath string) Result {
	variants := []Variant{VariantPackage}
	if subpath == "" {
		return r.resolvePath(ctx, q.WithKind(KindPackage), pkgDir, variants, 0, nil)
	}
	q = q.WithKind(KindAny)
	if m, ok := r.fs.Manifest(ctx, pkgDir); ok && m.Exports.Declared() {
		target, ok := m.Exports.Lookup("./"+subpath, r.project.PlatformAliases(q.Platform)...)
		if !ok {
			return missing()
		}
		return r.resolvePath(ctx, q, path.Join(pkgDir, target), variants, 0, nil)
	}
	return r.resolvePath(ctx, q, path.Join(pkgDir, subpath), variants, 0, nil)
}
