package resolver

import (
	"fmt"
)

// RequestedKind restricts what a query may resolve to.
type RequestedKind int

const (
	KindAny RequestedKind = iota
	// KindPackage only matches directories, never plain files.
	KindPackage
	// KindDirectory returns a matching directory itself.
	KindDirectory
)

func (k RequestedKind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindDirectory:
		return "directory"
	default:
		return "any"
	}
}

// Query is a resolution request. It is a value type: each resolution step
// derives a new query with the With* helpers. Queries are comparable and
// key the result cache.
type Query struct {
	// Source is the specifier as written.
	Source string
	// Origin is the importing file, a directory, or a remote URL.
	Origin        string
	Platform      string
	Scale         int
	Mocks         bool
	RequestedKind RequestedKind
	// Entry enables the path fallback for bare specifiers.
	Entry  bool
	Strict bool
}

func (q Query) String() string {
	return fmt.Sprintf("%q from %s", q.Source, q.Origin)
}

func (q Query) WithSource(source string) Query {
	q.Source = source
	return q
}

func (q Query) WithOrigin(origin string) Query {
	q.Origin = origin
	return q
}

func (q Query) WithPlatform(platform string) Query {
	q.Platform = platform
	return q
}

func (q Query) WithKind(kind RequestedKind) Query {
	q.RequestedKind = kind
	return q
}

func (q Query) WithStrict(strict bool) Query {
	q.Strict = strict
	return q
}
