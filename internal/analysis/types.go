// Package analysis defines what the static analysis of a single file yields:
// its module kind, declared exports, declared dependencies and the positions
// the orderer needs to reason about initialization order.
//
// Producing an Analysis is the job of an external worker. The graph only
// consumes the Analyzer interface. Scanner is a small lexical implementation
// used by the command-line front end.
package analysis

import (
	"context"

	"github.com/rome/tools-sub007/internal/diagnostics"
)

// ModuleKind distinguishes the two linking styles.
type ModuleKind int

const (
	// ModuleESM modules have statically known exports.
	ModuleESM ModuleKind = iota
	// ModuleCJS modules are opaque: their exports are assigned at runtime.
	ModuleCJS
)

func (k ModuleKind) String() string {
	if k == ModuleCJS {
		return "cjs"
	}
	return "es"
}

// ImportKind is the kind of binding a consumer asks for, or a producer offers.
type ImportKind string

const (
	KindValue  ImportKind = "value"
	KindType   ImportKind = "type"
	KindTypeof ImportKind = "typeof"
)

// IsValue reports whether k names a runtime binding. The zero kind is a value.
func (k ImportKind) IsValue() bool {
	return k == KindValue || k == ""
}

// ValueKind refines a value export. Functions and classes are hoisted and may
// also satisfy type-level requests.
type ValueKind int

const (
	ValueOther ValueKind = iota
	ValueFunction
	ValueClass
)

// Export is a closed sum type: LocalExport, ExternalExport,
// ExternalNamespaceExport or ExternalAllExport.
type Export interface {
	isExport()
	Location() diagnostics.Location
}

// LocalExport is a binding declared in the file itself.
type LocalExport struct {
	Name      string
	Kind      ImportKind
	ValueKind ValueKind
	Loc       diagnostics.Location
}

// ExternalExport re-exports Imported from Source under the name Exported.
type ExternalExport struct {
	Exported string
	Imported string
	Source   string
	Kind     ImportKind
	Loc      diagnostics.Location
}

// ExternalNamespaceExport re-exports the whole namespace of Source as Exported.
type ExternalNamespaceExport struct {
	Exported string
	Source   string
	Kind     ImportKind
	Loc      diagnostics.Location
}

// ExternalAllExport is `export * from Source`.
type ExternalAllExport struct {
	Source string
	Kind   ImportKind
	Loc    diagnostics.Location
}

func (LocalExport) isExport()             {}
func (ExternalExport) isExport()          {}
func (ExternalNamespaceExport) isExport() {}
func (ExternalAllExport) isExport()       {}

func (e LocalExport) Location() diagnostics.Location             { return e.Loc }
func (e ExternalExport) Location() diagnostics.Location          { return e.Loc }
func (e ExternalNamespaceExport) Location() diagnostics.Location { return e.Loc }
func (e ExternalAllExport) Location() diagnostics.Location       { return e.Loc }

// ImportedName is one name a dependency is used for.
type ImportedName struct {
	Name string
	Kind ImportKind
	Loc  diagnostics.Location
}

// Dependency is a declared import, re-export or require of another module.
type Dependency struct {
	Source string
	// Optional dependencies that fail to resolve are dropped silently.
	Optional bool
	// Async is set for dynamic import().
	Async bool
	// All is set when the importer needs every export (namespace import, export *).
	All   bool
	Kind  ImportKind
	Loc   diagnostics.Location
	Names []ImportedName
}

// FirstUsage is the first top-level use of an imported binding.
type FirstUsage struct {
	Source   string
	Imported string
	Local    string
	Kind     ImportKind
	Loc      diagnostics.Location
}

// Analysis is the result of analyzing one file.
type Analysis struct {
	ModuleKind            ModuleKind
	Exports               []Export
	Dependencies          []Dependency
	TopLevelLocalBindings map[string]diagnostics.Location
	ImportFirstUsage      []FirstUsage
	FirstTopAwaitLocation *diagnostics.Location
}

// Analyzer analyzes a file at an absolute path.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*Analysis, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, path string) (*Analysis, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, path string) (*Analysis, error) {
	return f(ctx, path)
}
