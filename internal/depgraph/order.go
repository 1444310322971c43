package depgraph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rome/tools-sub007/internal/analysis"
	"github.com/rome/tools-sub007/internal/diagnostics"
)

// ErrOrdererUsed is returned when an Orderer is asked for a second order.
var ErrOrdererUsed = errors.New("orderer has already been used")

// Order is a dependency-first linearization of the files reachable from a root.
type Order struct {
	Files       []string
	Diagnostics []diagnostics.Diagnostic
	// FirstTopAwaitLocations lists the first top-level await of every
	// ordered file that has one, in file order.
	FirstTopAwaitLocations []diagnostics.Location
}

// Orderer computes a single Order. The traversal state is not reusable.
type Orderer struct {
	graph    *Graph
	used     bool
	ordered  map[string]bool
	visiting map[string]bool
	files    []string
	// culprits holds, per node, the shortest import chain found that leads
	// from the node back to itself.
	culprits map[string][]string
}

// NewOrderer creates an Orderer over the graph's current contents.
func (g *Graph) NewOrderer() *Orderer {
	return &Orderer{
		graph:    g,
		ordered:  map[string]bool{},
		visiting: map[string]bool{},
		culprits: map[string][]string{},
	}
}

// Order linearizes the value edges reachable from root so that every file
// comes after the files it depends on, then reports imports that are read
// at the top level before their producer runs.
func (o *Orderer) Order(root string) (Order, error) {
	if o.used {
		return Order{}, ErrOrdererUsed
	}
	o.used = true

	n, err := o.graph.GetNode(root)
	if err != nil {
		return Order{}, err
	}
	o.visit(n, nil)

	order := Order{Files: o.files}
	index := make(map[string]int, len(o.files))
	for i, p := range o.files {
		index[p] = i
	}
	for i, p := range o.files {
		node, ok := o.graph.MaybeGetNode(p)
		if !ok {
			continue
		}
		for _, usage := range node.analysis.ImportFirstUsage {
			if d, ok := o.checkUsage(node, i, index, usage); ok {
				order.Diagnostics = append(order.Diagnostics, d)
			}
		}
		if loc := node.analysis.FirstTopAwaitLocation; loc != nil {
			order.FirstTopAwaitLocations = append(order.FirstTopAwaitLocations, *loc)
		}
	}
	return order, nil
}

func (o *Orderer) visit(n *Node, ancestry []string) {
	if o.ordered[n.path] {
		return
	}
	if o.visiting[n.path] {
		o.recordCulprit(n.path, ancestry)
		return
	}
	o.visiting[n.path] = true
	trail := append(slices.Clip(ancestry), n.path)

	for _, dep := range n.Dependencies() {
		// Type imports have no runtime placement.
		if !dep.Kind.IsValue() {
			continue
		}
		if target := n.dependencyNode(dep.Source); target != nil {
			o.visit(target, trail)
		}
	}

	delete(o.visiting, n.path)
	o.ordered[n.path] = true
	o.files = append(o.files, n.path)
}

// recordCulprit keeps the shortest loop through p seen so far. ancestry
// ends with the importer that reached p again.
func (o *Orderer) recordCulprit(p string, ancestry []string) {
	start := -1
	for i, a := range ancestry {
		if a == p {
			start = i
			break
		}
	}
	if start < 0 {
		return
	}
	loop := append(append([]string(nil), ancestry[start:]...), p)
	if existing, ok := o.culprits[p]; !ok || len(loop) < len(existing) {
		o.culprits[p] = loop
	}
}

func (o *Orderer) checkUsage(consumer *Node, at int, index map[string]int, usage analysis.FirstUsage) (diagnostics.Diagnostic, bool) {
	if !usage.Kind.IsValue() {
		return diagnostics.Diagnostic{}, false
	}
	target := consumer.dependencyNode(usage.Source)
	if target == nil {
		return diagnostics.Diagnostic{}, false
	}
	producer, ok := target.ResolveImport(usage.Imported, usage.Kind, nil)
	if !ok || producer.Export == nil || producer.Hoisted() {
		return diagnostics.Diagnostic{}, false
	}
	producedAt, ok := index[producer.Node.path]
	if !ok || producedAt <= at {
		return diagnostics.Diagnostic{}, false
	}

	d := diagnostics.Diagnostic{
		Category: diagnostics.CategoryDetectedCycle,
		Message: fmt.Sprintf("The import %q from %s is used before %s has been initialized",
			usage.Imported, usage.Source, producer.Node.UID()),
		Location: usage.Loc,
	}
	loc := producer.Export.Location()
	d.Advice = append(d.Advice, diagnostics.Advice{Message: "Declared here:", Location: &loc})
	if chain := o.culprit(consumer.path, producer.Node.path); len(chain) > 0 {
		list := make([]string, len(chain))
		for i, p := range chain {
			list[i] = o.graph.uidFor(p)
		}
		d.Advice = append(d.Advice, diagnostics.Advice{Message: "Import cycle:", List: list})
	}
	return d, true
}

// culprit returns the shortest recorded loop through either file.
func (o *Orderer) culprit(consumer, producer string) []string {
	a, b := o.culprits[consumer], o.culprits[producer]
	switch {
	case a == nil:
		return b
	case b == nil || len(a) <= len(b):
		return a
	}
	return b
}
