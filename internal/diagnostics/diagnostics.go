// Package diagnostics defines the records produced by resolution, graph
// construction and ordering, plus a thread-safe collector that callers own.
//
// Diagnostics are data. Only assertion-style calls (a hard resolution, a
// missing entry point) turn a failure into a Go error; everything else is
// appended to a Collector and the traversal carries on.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Category classifies a diagnostic.
type Category string

const (
	CategoryResolutionMissing     Category = "resolve/missing"
	CategoryResolutionUnsupported Category = "resolve/unsupported"
	CategoryResolutionFetch       Category = "resolve/fetch"
	CategoryUnknownExport         Category = "bundler/unknown-export"
	CategoryDetectedCycle         Category = "bundler/detected-cycle"
	CategoryAnalysisFailed        Category = "analyze/failed"
)

// Location points at a position inside a file. Line and Column are 1-based;
// zero means unknown.
type Location struct {
	Path   string
	Line   int
	Column int
}

// String renders the location as path:line:column, omitting unknown parts.
func (l Location) String() string {
	switch {
	case l.Line == 0:
		return l.Path
	case l.Column == 0:
		return fmt.Sprintf("%s:%d", l.Path, l.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
	}
}

// Advice is an attachment that helps the user act on a diagnostic.
type Advice struct {
	Message  string
	List     []string
	Location *Location
}

// Diagnostic is a single problem report.
type Diagnostic struct {
	Category Category
	Message  string
	Location Location
	Advice   []Advice
}

// String renders a single-line summary, used by the CLI and in logs.
func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(d.Location.String())
	sb.WriteString(" ")
	sb.WriteString(string(d.Category))
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// Collector accumulates diagnostics from concurrent producers. A positive
// limit caps how many are kept; once reached, Add drops further records and
// counts them instead.
type Collector struct {
	mu      sync.Mutex
	items   []Diagnostic
	limit   int
	dropped int
}

// NewCollector creates a collector. A limit of zero or less means unlimited.
func NewCollector(limit int) *Collector {
	return &Collector{limit: limit}
}

// Add appends diagnostics. It returns false if at least one was dropped
// because the cap had been reached.
func (c *Collector) Add(diags ...Diagnostic) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	accepted := true
	for _, d := range diags {
		if c.limit > 0 && len(c.items) >= c.limit {
			c.dropped++
			accepted = false
			continue
		}
		c.items = append(c.items, d)
	}
	return accepted
}

// Full reports whether the cap has been reached.
func (c *Collector) Full() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit > 0 && len(c.items) >= c.limit
}

// Len returns the number of kept diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Dropped returns how many diagnostics were refused because of the cap.
func (c *Collector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Total returns how many diagnostics were added, kept or dropped.
func (c *Collector) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) + c.dropped
}

// HasErrors reports whether anything was collected, kept or dropped.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) > 0 || c.dropped > 0
}

// Diagnostics returns a sorted snapshot. Producers run concurrently, so
// arrival order carries no meaning; sorting makes output comparable.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	c.mu.Unlock()

	Sort(out)
	return out
}

// Sort orders diagnostics by location, then category, then message.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Location.Path != b.Location.Path {
			return a.Location.Path < b.Location.Path
		}
		if a.Location.Line != b.Location.Line {
			return a.Location.Line < b.Location.Line
		}
		if a.Location.Column != b.Location.Column {
			return a.Location.Column < b.Location.Column
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Message < b.Message
	})
}
