package app

import (
	"bufio"
	"fmt"
	"io"

	"github.com/rome/tools-sub007/internal/depgraph"
	"github.com/rome/tools-sub007/internal/diagnostics"
)

// EntryReport is the execution order computed for one entry point.
type EntryReport struct {
	Root   string
	Files  []string
	Awaits []diagnostics.Location
}

// Report is the outcome of one build.
type Report struct {
	Project     string
	Entries     []EntryReport
	Diagnostics []diagnostics.Diagnostic
	Dropped     int
	Stats       depgraph.Stats
}

// Write renders the report in a human-readable form.
func (r *Report) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, entry := range r.Entries {
		fmt.Fprintf(bw, "Entry %s\n", entry.Root)
		for i, file := range entry.Files {
			fmt.Fprintf(bw, "  %d. %s\n", i+1, file)
		}
		for _, loc := range entry.Awaits {
			fmt.Fprintf(bw, "  top-level await at %s\n", loc)
		}
	}
	fmt.Fprintf(bw, "%s: %d modules, %d edges\n", r.Project, r.Stats.Nodes, r.Stats.Edges)

	if len(r.Diagnostics) == 0 && r.Dropped == 0 {
		fmt.Fprintln(bw, "No problems found.")
		return bw.Flush()
	}
	for _, d := range r.Diagnostics {
		writeDiagnostic(bw, d)
	}
	if r.Dropped > 0 {
		fmt.Fprintf(bw, "%d more diagnostic(s) were not shown.\n", r.Dropped)
	}
	fmt.Fprintf(bw, "Found %d problem(s).\n", len(r.Diagnostics)+r.Dropped)
	return bw.Flush()
}

func writeDiagnostic(w io.Writer, d diagnostics.Diagnostic) {
	fmt.Fprintln(w, d.String())
	for _, advice := range d.Advice {
		if advice.Message != "" {
			fmt.Fprintf(w, "  %s\n", advice.Message)
		}
		for _, item := range advice.List {
			fmt.Fprintf(w, "    - %s\n", item)
		}
		if advice.Location != nil {
			fmt.Fprintf(w, "    at %s\n", advice.Location)
		}
	}
}
