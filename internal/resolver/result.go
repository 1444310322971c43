package resolver

// Status is the outcome of a resolution.
type Status int

const (
	StatusMissing Status = iota
	StatusFound
	StatusUnsupported
	StatusFetchError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusUnsupported:
		return "unsupported"
	case StatusFetchError:
		return "fetch_error"
	default:
		return "missing"
	}
}

// Variant tags an implicit rule that fired while resolving.
type Variant string

const (
	VariantPlatform          Variant = "platform"
	VariantImplicitExtension Variant = "implicit-extension"
	VariantScale             Variant = "scale"
	VariantImplicitIndex     Variant = "implicit-index"
	VariantPackage           Variant = "package"
	VariantMock              Variant = "mock"
	VariantVirtual           Variant = "virtual"
	VariantRemote            Variant = "remote"
)

// Result is the outcome of resolving a Query.
type Result struct {
	Status Status
	// Path is set when Status is StatusFound.
	Path string
	// Variants lists the implicit rules applied, in order.
	Variants []Variant
	// Advice explains Unsupported and FetchError outcomes.
	Advice []string
}

func (r Result) Found() bool {
	return r.Status == StatusFound
}

// Has reports whether v was applied to reach the result.
func (r Result) Has(v Variant) bool {
	for _, got := range r.Variants {
		if got == v {
			return true
		}
	}
	return false
}

func found(path string, variants []Variant) Result {
	return Result{Status: StatusFound, Path: path, Variants: variants}
}

func missing() Result {
	return Result{Status: StatusMissing}
}

// tag returns variants with v appended, never sharing the backing array.
func tag(variants []Variant, v Variant) []Variant {
	out := make([]Variant, len(variants), len(variants)+1)
	copy(out, variants)
	return append(out, v)
}
