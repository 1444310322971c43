package resolver

import (
	"fmt"
	"strings"

	"github.com/rome/tools-sub007/internal/diagnostics"
)

// ResolveError is returned by the assert variants when a query does not
// resolve to a file.
type ResolveError struct {
	Query  Query
	Result Result
	// Advice holds the result's own advice followed by suggestions.
	Advice []string
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	switch e.Result.Status {
	case StatusUnsupported:
		fmt.Fprintf(&b, "unsupported specifier %s", e.Query)
	case StatusFetchError:
		fmt.Fprintf(&b, "failed to fetch %s", e.Query)
	default:
		fmt.Fprintf(&b, "cannot find %s", e.Query)
	}
	for _, advice := range e.Advice {
		b.WriteString("\n  ")
		b.WriteString(advice)
	}
	return b.String()
}

// Category maps the failed status to a diagnostic category.
func (e *ResolveError) Category() diagnostics.Category {
	return CategoryFor(e.Result.Status)
}

// CategoryFor maps a non-found status to its diagnostic category.
func CategoryFor(status Status) diagnostics.Category {
	switch status {
	case StatusUnsupported:
		return diagnostics.CategoryResolutionUnsupported
	case StatusFetchError:
		return diagnostics.CategoryResolutionFetch
	default:
		return diagnostics.CategoryResolutionMissing
	}
}
