package depgraph

import (
	"fmt"
	"slices"
	"sort"

	"github.com/rome/tools-sub007/internal/analysis"
	"github.com/rome/tools-sub007/internal/diagnostics"
	"github.com/rome/tools-sub007/internal/suggest"
)

// maxExportSuggestions bounds the names listed in an unknown-export diagnostic.
const maxExportSuggestions = 10

// ResolvedExport identifies the producer of an imported name.
type ResolvedExport struct {
	Node *Node
	// Export is the producing record. It is nil when the import resolved to
	// the node's namespace or to a CommonJS module, whose exports are opaque.
	Export analysis.Export
	// Name is the name at the producer: "*" for a namespace.
	Name string
}

// Hoisted reports whether the producer is a function or class declaration,
// which is available before its module body runs.
func (r ResolvedExport) Hoisted() bool {
	local, ok := r.Export.(analysis.LocalExport)
	return ok && local.Kind.IsValue() &&
		(local.ValueKind == analysis.ValueFunction || local.ValueKind == analysis.ValueClass)
}

// kindSatisfies reports whether a local export may serve a request of the given kind.
func kindSatisfies(e analysis.LocalExport, kind analysis.ImportKind) bool {
	switch kind {
	case analysis.KindType:
		if e.Kind == analysis.KindType {
			return true
		}
		return e.Kind.IsValue() && (e.ValueKind == analysis.ValueFunction || e.ValueKind == analysis.ValueClass)
	case analysis.KindTypeof:
		return e.Kind.IsValue() || e.Kind == analysis.KindTypeof
	default:
		return e.Kind.IsValue()
	}
}

// ResolveImport follows the node's exports to the producer of name. Exports
// are scanned from last to first so later declarations shadow earlier ones.
// ancestry lists the paths already visited by this resolution; reaching one
// of them again ends the search with no result.
func (n *Node) ResolveImport(name string, kind analysis.ImportKind, ancestry []string) (ResolvedExport, bool) {
	if slices.Contains(ancestry, n.path) {
		return ResolvedExport{}, false
	}
	if n.Kind() == analysis.ModuleCJS {
		return ResolvedExport{Node: n, Name: name}, true
	}
	if name == "*" {
		return ResolvedExport{Node: n, Name: "*"}, true
	}
	trail := append(slices.Clip(ancestry), n.path)

	exports := n.analysis.Exports
	for i := len(exports) - 1; i >= 0; i-- {
		switch e := exports[i].(type) {
		case analysis.LocalExport:
			if e.Name == name && kindSatisfies(e, kind) {
				return ResolvedExport{Node: n, Export: e, Name: name}, true
			}

		case analysis.ExternalExport:
			if e.Exported != name {
				continue
			}
			target := n.dependencyNode(e.Source)
			if target == nil {
				continue
			}
			if res, ok := target.ResolveImport(e.Imported, kind, trail); ok {
				return res, true
			}

		case analysis.ExternalNamespaceExport:
			if e.Exported != name {
				continue
			}
			if target := n.dependencyNode(e.Source); target != nil {
				return ResolvedExport{Node: target, Export: e, Name: "*"}, true
			}

		case analysis.ExternalAllExport:
			// Star exports never forward a default.
			if name == "default" {
				continue
			}
			target := n.dependencyNode(e.Source)
			if target == nil || target.Kind() == analysis.ModuleCJS {
				continue
			}
			if res, ok := target.ResolveImport(name, kind, trail); ok {
				return res, true
			}
		}
	}
	return ResolvedExport{}, false
}

// ExportedNames returns every name the module exports, including names
// reached through star exports, sorted.
func (n *Node) ExportedNames() []string {
	set := map[string]bool{}
	n.collectExportedNames(set, nil)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *Node) collectExportedNames(set map[string]bool, ancestry []string) {
	if slices.Contains(ancestry, n.path) {
		return
	}
	trail := append(slices.Clip(ancestry), n.path)
	for _, e := range n.analysis.Exports {
		switch e := e.(type) {
		case analysis.LocalExport:
			set[e.Name] = true
		case analysis.ExternalExport:
			set[e.Exported] = true
		case analysis.ExternalNamespaceExport:
			set[e.Exported] = true
		case analysis.ExternalAllExport:
			target := n.dependencyNode(e.Source)
			if target == nil || target.Kind() == analysis.ModuleCJS {
				continue
			}
			sub := map[string]bool{}
			target.collectExportedNames(sub, trail)
			delete(sub, "default")
			for name := range sub {
				set[name] = true
			}
		}
	}
}

// ImportResolution is the outcome of checking every imported name of a node.
type ImportResolution struct {
	// Forwarded maps "<imported module UID>:<name>" to the producer of a
	// name that the imported module re-exports from somewhere else.
	Forwarded map[string]ResolvedExport
	// Diagnostics reports imported names no module exports.
	Diagnostics []diagnostics.Diagnostic
}

// ResolveImports resolves every value name the node imports from its direct
// dependencies. The result is memoized until the node gains an edge or the
// graph evicts a node.
func (n *Node) ResolveImports() *ImportResolution {
	n.mu.RLock()
	cached := n.imports
	n.mu.RUnlock()
	if cached != nil {
		return cached
	}

	res := &ImportResolution{Forwarded: map[string]ResolvedExport{}}
	for _, dep := range n.Dependencies() {
		target := n.dependencyNode(dep.Source)
		if target == nil || target.Kind() == analysis.ModuleCJS {
			continue
		}
		for _, imported := range dep.Names {
			if !imported.Kind.IsValue() {
				continue
			}
			found, ok := target.ResolveImport(imported.Name, imported.Kind, nil)
			if !ok {
				res.Diagnostics = append(res.Diagnostics, unknownExport(target, imported))
				continue
			}
			if found.Node != target {
				res.Forwarded[target.UID()+":"+imported.Name] = found
			}
		}
	}

	n.mu.Lock()
	n.imports = res
	n.mu.Unlock()
	return res
}

func unknownExport(target *Node, imported analysis.ImportedName) diagnostics.Diagnostic {
	d := diagnostics.Diagnostic{
		Category: diagnostics.CategoryUnknownExport,
		Message:  fmt.Sprintf("Couldn't find export %q in %s", imported.Name, target.UID()),
		Location: imported.Loc,
	}
	names := target.ExportedNames()
	if ranked := suggest.Rank(imported.Name, names, maxExportSuggestions); len(ranked) > 0 {
		d.Advice = append(d.Advice, diagnostics.Advice{Message: "Did you mean one of these?", List: ranked})
	} else if len(names) > 0 {
		if len(names) > maxExportSuggestions {
			names = names[:maxExportSuggestions]
		}
		d.Advice = append(d.Advice, diagnostics.Advice{Message: "Available exports:", List: names})
	} else {
		d.Advice = append(d.Advice, diagnostics.Advice{Message: "This module has no exports."})
	}
	if loc, ok := target.analysis.TopLevelLocalBindings[imported.Name]; ok {
		d.Advice = append(d.Advice, diagnostics.Advice{
			Message:  fmt.Sprintf("There is a top-level %q binding in %s but it is not exported.", imported.Name, target.UID()),
			Location: &loc,
		})
	}
	return d
}
