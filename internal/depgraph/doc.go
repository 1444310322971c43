// Package depgraph builds and queries the module graph of a project.
//
// A Graph owns one Node per absolute file path. Seed drives the resolver and
// the analyzer from a set of entry points to a fixpoint: every declared
// dependency that resolves becomes an edge, and every edge target becomes a
// node. Node creation is serialized per path by a FIFO lock, so concurrent
// seeds touching the same files still produce a single node for each.
//
// On top of the graph a Node resolves symbols across re-export chains
// (ResolveImport, ResolveImports) and an Orderer linearizes the value edges
// reachable from a root into a dependency-first file order, reporting
// imports that are read before their producer has been initialized.
//
// Failures are diagnostics, not errors. Only a missing entry point, a
// cancelled context and GetNode on an unknown path return errors.
package depgraph
