package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/rome/tools-sub007/internal/analysis"
	"github.com/rome/tools-sub007/internal/diagnostics"
)

// StaticAnalyzer serves canned analyses keyed by path and counts calls.
type StaticAnalyzer struct {
	mu       sync.Mutex
	results  map[string]*analysis.Analysis
	failures map[string]error
	calls    map[string]int
}

// NewStaticAnalyzer creates an analyzer with no registered files.
func NewStaticAnalyzer() *StaticAnalyzer {
	return &StaticAnalyzer{
		results:  map[string]*analysis.Analysis{},
		failures: map[string]error{},
		calls:    map[string]int{},
	}
}

// Set registers the analysis returned for path.
func (s *StaticAnalyzer) Set(path string, a *analysis.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.TopLevelLocalBindings == nil {
		a.TopLevelLocalBindings = map[string]diagnostics.Location{}
	}
	s.results[path] = a
}

// Fail makes Analyze return err for path.
func (s *StaticAnalyzer) Fail(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = err
}

// Calls returns how many times path was analyzed.
func (s *StaticAnalyzer) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Analyze implements analysis.Analyzer. Unregistered paths analyze to an
// empty ES module.
func (s *StaticAnalyzer) Analyze(_ context.Context, path string) (*analysis.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[path]++
	if err, ok := s.failures[path]; ok {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}
	if a, ok := s.results[path]; ok {
		return a, nil
	}
	return &analysis.Analysis{TopLevelLocalBindings: map[string]diagnostics.Location{}}, nil
}

// Import builds a synchronous value dependency importing names.
func Import(source string, names ...string) analysis.Dependency {
	dep := analysis.Dependency{Source: source, Kind: analysis.KindValue}
	for _, name := range names {
		dep.Names = append(dep.Names, analysis.ImportedName{Name: name, Kind: analysis.KindValue})
	}
	return dep
}

// Local builds a value export declared in the file itself.
func Local(name string) analysis.LocalExport {
	return analysis.LocalExport{Name: name, Kind: analysis.KindValue}
}

// Usage records the first top-level read of an imported binding.
func Usage(source, imported string, line int) analysis.FirstUsage {
	return analysis.FirstUsage{
		Source:   source,
		Imported: imported,
		Local:    imported,
		Kind:     analysis.KindValue,
		Loc:      diagnostics.Location{Line: line, Column: 1},
	}
}
