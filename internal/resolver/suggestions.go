package resolver

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rome/tools-sub007/internal/suggest"
)

const maxSuggestions = 5

// Suggest builds advice for a failed resolution. It only issues further
// queries and never changes res.
func (r *Resolver) Suggest(ctx context.Context, q Query, res Result) []string {
	if res.Found() || res.Status != StatusMissing {
		return nil
	}
	dir := r.originDir(ctx, q.Origin)

	var advice []string
	if isPathLike(q.Source) {
		target := absolute(dir, q.Source)
		advice = append(advice, r.kindHint(ctx, q, target)...)
		advice = append(advice, r.extensionHint(ctx, q)...)
		advice = append(advice, r.platformHints(ctx, q)...)
		advice = append(advice, r.indexHint(ctx, target)...)
		advice = append(advice, r.siblingHints(ctx, target)...)
		return advice
	}
	advice = append(advice, r.extensionHint(ctx, q)...)
	advice = append(advice, r.platformHints(ctx, q)...)
	advice = append(advice, r.packageHints(ctx, q, dir)...)
	return advice
}

func (r *Resolver) kindHint(ctx context.Context, q Query, target string) []string {
	if q.RequestedKind == KindPackage && r.fs.IsFile(ctx, target) {
		return []string{fmt.Sprintf("found a file at %s but a package was requested", target)}
	}
	return nil
}

func (r *Resolver) extensionHint(ctx context.Context, q Query) []string {
	if !q.Strict {
		return nil
	}
	if alt := r.Resolve(ctx, q.WithStrict(false)); alt.Found() {
		return []string{fmt.Sprintf("did you forget the file extension? %s exists", alt.Path)}
	}
	return nil
}

func (r *Resolver) platformHints(ctx context.Context, q Query) []string {
	var advice []string
	for _, platform := range r.project.PlatformNames() {
		if platform == q.Platform {
			continue
		}
		alt := r.Resolve(ctx, q.WithPlatform(platform))
		if alt.Found() && alt.Has(VariantPlatform) {
			advice = append(advice, fmt.Sprintf("only found for platform %q: %s", platform, alt.Path))
		}
	}
	return advice
}

func (r *Resolver) indexHint(ctx context.Context, target string) []string {
	if !r.fs.IsDirectory(ctx, target) {
		return nil
	}
	return []string{fmt.Sprintf("%s is a directory without a manifest entry or an index file", target)}
}

func (r *Resolver) siblingHints(ctx context.Context, target string) []string {
	parent := path.Dir(target)
	names, err := r.fs.ReadDir(ctx, parent)
	if err != nil {
		return nil
	}
	base := path.Base(target)
	// Compare without extensions too, so "./buton" finds "button.js".
	byStem := make(map[string][]string, len(names))
	candidates := make([]string, 0, 2*len(names))
	for _, name := range names {
		candidates = append(candidates, name)
		if stem := strings.TrimSuffix(name, path.Ext(name)); stem != name {
			byStem[stem] = append(byStem[stem], name)
			candidates = append(candidates, stem)
		}
	}

	seen := make(map[string]struct{})
	var advice []string
	for _, match := range suggest.Rank(base, candidates, 0) {
		files, isStem := byStem[match]
		if !isStem {
			files = []string{match}
		}
		for _, f := range files {
			if _, dup := seen[f]; dup || f == base {
				continue
			}
			seen[f] = struct{}{}
			advice = append(advice, fmt.Sprintf("did you mean %s?", path.Join(parent, f)))
		}
		if len(advice) >= maxSuggestions {
			return advice[:maxSuggestions]
		}
	}
	return advice
}

func (r *Resolver) packageHints(ctx context.Context, q Query, dir string) []string {
	name, _ := splitModule(q.Source)
	candidates := make([]string, 0, len(r.project.Packages))
	for pkg := range r.project.Packages {
		candidates = append(candidates, pkg)
	}
	for d := dir; ; d = path.Dir(d) {
		candidates = append(candidates, r.installedPackages(ctx, path.Join(d, modulesDir))...)
		if d == "/" || d == "." {
			break
		}
	}
	sort.Strings(candidates)

	var advice []string
	for _, match := range suggest.Rank(name, candidates, maxSuggestions) {
		advice = append(advice, fmt.Sprintf("did you mean the package %q?", match))
	}
	return advice
}

// installedPackages lists package names in a node_modules folder,
// expanding scopes.
func (r *Resolver) installedPackages(ctx context.Context, modules string) []string {
	names, err := r.fs.ReadDir(ctx, modules)
	if err != nil {
		return nil
	}
	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasPrefix(name, "@") {
			out = append(out, name)
			continue
		}
		scoped, err := r.fs.ReadDir(ctx, path.Join(modules, name))
		if err != nil {
			continue
		}
		for _, s := range scoped {
			out = append(out, name+"/"+s)
		}
	}
	return out
}
