package depgraph

import (
	"sync"

	"github.com/rome/tools-sub007/internal/analysis"
)

// Node is the graph's record of a single file.
type Node struct {
	graph    *Graph
	path     string
	uid      string
	analysis *analysis.Analysis

	mu    sync.RWMutex
	all   bool
	async bool
	// edges maps a dependency specifier to the resolved absolute path.
	edges   map[string]string
	imports *ImportResolution
}

func newNode(g *Graph, path string, a *analysis.Analysis, all, async bool) *Node {
	return &Node{
		graph:    g,
		path:     path,
		uid:      g.uidFor(path),
		analysis: a,
		all:      all,
		async:    async,
		edges:    make(map[string]string),
	}
}

// Path returns the absolute path of the file.
func (n *Node) Path() string { return n.path }

// UID returns the node's stable identifier, the path relative to the project root.
func (n *Node) UID() string { return n.uid }

// Kind returns the module kind reported by the analyzer.
func (n *Node) Kind() analysis.ModuleKind { return n.analysis.ModuleKind }

// Analysis returns the analyzer's result. Callers must not modify it.
func (n *Node) Analysis() *analysis.Analysis { return n.analysis }

// All reports whether some consumer needs every export of the module.
func (n *Node) All() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.all
}

// Async reports whether the module is only reached through dynamic imports.
func (n *Node) Async() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.async
}

// SetAll marks the module as fully used. It reports whether the flag changed.
func (n *Node) SetAll(all bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !all || n.all {
		return false
	}
	n.all = true
	return true
}

// SetUsedAsync records how the module is reached. Once a synchronous consumer
// exists the module stays synchronous. It reports whether the flag changed.
func (n *Node) SetUsedAsync(async bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if async || !n.async {
		return false
	}
	n.async = false
	return true
}

// AddDependency records that specifier resolved to path.
func (n *Node) AddDependency(specifier, path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edges[specifier] = path
	n.imports = nil
}

// DependencyPath returns the path a specifier resolved to.
func (n *Node) DependencyPath(specifier string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	p, ok := n.edges[specifier]
	return p, ok
}

// Dependencies returns the declared dependencies that resolved to a file, in
// declaration order.
func (n *Node) Dependencies() []analysis.Dependency {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []analysis.Dependency
	for _, dep := range n.analysis.Dependencies {
		if _, ok := n.edges[dep.Source]; ok {
			out = append(out, dep)
		}
	}
	return out
}

// dependencyNode returns the node an edge points to, or nil if the
// specifier did not resolve or the target has been evicted.
func (n *Node) dependencyNode(specifier string) *Node {
	p, ok := n.DependencyPath(specifier)
	if !ok {
		return nil
	}
	target, _ := n.graph.MaybeGetNode(p)
	return target
}

// reexports reports whether the module forwards the whole namespace of source.
func (n *Node) reexports(source string) bool {
	for _, e := range n.analysis.Exports {
		switch e := e.(type) {
		case analysis.ExternalAllExport:
			if e.Source == source {
				return true
			}
		case analysis.ExternalNamespaceExport:
			if e.Source == source {
				return true
			}
		}
	}
	return false
}

// children derives the work items for every resolved dependency. The
// importer's requirements flow into re-exported and synchronous edges.
func (n *Node) children(ancestry []string) []seedItem {
	deps := n.Dependencies()
	if len(deps) == 0 {
		return nil
	}
	all, async := n.All(), n.Async()
	trail := append(append([]string(nil), ancestry...), n.path)

	items := make([]seedItem, 0, len(deps))
	for _, dep := range deps {
		p, _ := n.DependencyPath(dep.Source)
		items = append(items, seedItem{
			path:     p,
			all:      dep.All || all && n.reexports(dep.Source),
			async:    dep.Async || async,
			ancestry: trail,
		})
	}
	return items
}

func (n *Node) resetImports() {
	n.mu.Lock()
	n.imports = nil
	n.mu.Unlock()
}

// GetDependencyOrder orders the graph reachable from this node with a fresh Orderer.
func (n *Node) GetDependencyOrder() Order {
	order, _ := n.graph.NewOrderer().Order(n.path)
	return order
}
