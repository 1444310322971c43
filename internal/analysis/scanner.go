package analysis

import (
	"context"
	"fmt"
	"path"

	"github.com/rome/tools-sub007/internal/config"
	"github.com/rome/tools-sub007/internal/ctxlog"
	"github.com/rome/tools-sub007/internal/diagnostics"
	"github.com/rome/tools-sub007/internal/vfs"
)

// Scanner is a lexical Analyzer. It recognizes module syntax without
// building a syntax tree, which is enough to drive the graph for ordinary
// sources: import and export statements, require and import() calls,
// top-level declarations, top-level await and the first top-level use of
// every imported binding.
type Scanner struct {
	fs vfs.FS
}

var _ Analyzer = (*Scanner)(nil)

// NewScanner creates a Scanner reading files through fs.
func NewScanner(fs vfs.FS) *Scanner {
	return &Scanner{fs: fs}
}

// Analyze reads and scans the file at p. JSON files export a single default value.
func (s *Scanner) Analyze(ctx context.Context, p string) (*Analysis, error) {
	data, err := s.fs.ReadFile(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	if path.Ext(p) == ".json" || config.IsAsset(p) {
		return &Analysis{
			ModuleKind: ModuleESM,
			Exports: []Export{
				LocalExport{Name: "default", Kind: KindValue, Loc: diagnostics.Location{Path: p, Line: 1, Column: 1}},
			},
			TopLevelLocalBindings: map[string]diagnostics.Location{},
		}, nil
	}
	a := Scan(p, data)
	ctxlog.FromContext(ctx).Debug("Scanned file.",
		"path", p,
		"module_kind", a.ModuleKind.String(),
		"exports", len(a.Exports),
		"dependencies", len(a.Dependencies),
	)
	return a, nil
}

type scope int

const (
	scopeBlock scope = iota
	scopeFunction
	scopeClass
	scopeTry
)

// controlKeywords precede a parenthesized head followed by a block, not a function body.
var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true, "with": true,
}

type importBinding struct {
	source   string
	imported string
	kind     ImportKind
}

type scanState struct {
	path string
	toks []token
	pos  int
	a    *Analysis
	deps map[string]int

	esm        bool
	cjs        bool
	sawRequire bool

	braces       []scope
	parens       []string
	lastClosed   string
	pendingFunc  int
	pendingClass int
	pendingTry   bool
	arrowDepth   int

	imports   map[string]importBinding
	used      map[string]bool
	declKinds map[string]ValueKind
	// localExports indexes `export {a as b}` entries; pendingLocalNames
	// holds their local names in the same order.
	localExports      []int
	pendingLocalNames []string
}

// Scan analyzes source text.
func Scan(p string, src []byte) *Analysis {
	st := &scanState{
		path:         p,
		toks:         tokenize(src),
		a:            &Analysis{TopLevelLocalBindings: map[string]diagnostics.Location{}},
		deps:         map[string]int{},
		pendingFunc:  -1,
		pendingClass: -1,
		arrowDepth:   -1,
		imports:      map[string]importBinding{},
		used:         map[string]bool{},
		declKinds:    map[string]ValueKind{},
	}
	for st.pos < len(st.toks) {
		t := st.toks[st.pos]
		switch t.kind {
		case tokPunct:
			st.punct(t)
			st.pos++
		case tokIdent:
			st.ident(t)
		default:
			st.pos++
		}
	}
	st.finish()
	return st.a
}

func (st *scanState) tok(i int) token {
	if i >= 0 && i < len(st.toks) {
		return st.toks[i]
	}
	return token{kind: tokPunct, text: ""}
}

func (st *scanState) is(i int, kind tokenKind, text string) bool {
	t := st.tok(i)
	return t.kind == kind && t.text == text
}

func (st *scanState) loc(t token) diagnostics.Location {
	return diagnostics.Location{Path: st.path, Line: t.line, Column: t.col}
}

func (st *scanState) functionDepth() int {
	n := 0
	for _, s := range st.braces {
		if s == scopeFunction {
			n++
		}
	}
	return n
}

func (st *scanState) inTry() bool {
	for _, s := range st.braces {
		if s == scopeTry {
			return true
		}
	}
	return false
}

// topLevel reports whether code at the current position runs during
// module initialization.
func (st *scanState) topLevel() bool {
	return st.functionDepth() == 0 && st.arrowDepth < 0
}

func (st *scanState) punct(t token) {
	switch t.text {
	case "{":
		st.braces = append(st.braces, st.openScope())
	case "}":
		if len(st.braces) > 0 {
			st.braces = st.braces[:len(st.braces)-1]
		}
	case "(", "[":
		callee := ""
		if prev := st.tok(st.pos - 1); prev.kind == tokIdent && t.text == "(" {
			callee = prev.text
		}
		st.parens = append(st.parens, callee)
	case ")", "]":
		if len(st.parens) > 0 {
			st.lastClosed = st.parens[len(st.parens)-1]
			st.parens = st.parens[:len(st.parens)-1]
		}
		if st.arrowDepth > len(st.parens) {
			st.arrowDepth = -1
		}
	case "=>":
		if !st.is(st.pos+1, tokPunct, "{") && st.arrowDepth < 0 {
			st.arrowDepth = len(st.parens)
		}
	case ";":
		st.arrowDepth = -1
	case ",":
		if st.arrowDepth == len(st.parens) {
			st.arrowDepth = -1
		}
	}
}

func (st *scanState) openScope() scope {
	depth := len(st.parens)
	prev := st.tok(st.pos - 1)
	switch {
	case st.pendingTry:
		st.pendingTry = false
		return scopeTry
	case st.pendingFunc == depth:
		st.pendingFunc = -1
		return scopeFunction
	case st.pendingClass == depth:
		st.pendingClass = -1
		return scopeClass
	case prev.kind == tokPunct && prev.text == "=>":
		return scopeFunction
	case prev.kind == tokPunct && prev.text == ")" && !controlKeywords[st.lastClosed]:
		return scopeFunction
	case len(st.braces) > 0 && st.braces[len(st.braces)-1] == scopeClass:
		return scopeFunction
	}
	return scopeBlock
}

func (st *scanState) ident(t token) {
	prev := st.tok(st.pos - 1)
	if prev.kind == tokPunct && prev.text == "." {
		if t.text == "exports" && st.is(st.pos-2, tokIdent, "module") {
			st.cjs = true
		}
		st.pos++
		return
	}

	switch t.text {
	case "import":
		if st.is(st.pos+1, tokPunct, "(") {
			if src := st.tok(st.pos + 2); src.kind == tokString && st.is(st.pos+3, tokPunct, ")") {
				st.addDependency(Dependency{Source: src.text, Async: true, All: true, Kind: KindValue, Optional: st.inTry(), Loc: st.loc(src)})
			}
			st.pos++
			return
		}
		if len(st.braces) == 0 && !st.is(st.pos+1, tokPunct, ".") {
			st.parseImport()
			return
		}
	case "export":
		if len(st.braces) == 0 {
			st.parseExport()
			return
		}
	case "require":
		if src := st.tok(st.pos + 2); st.is(st.pos+1, tokPunct, "(") && src.kind == tokString && st.is(st.pos+3, tokPunct, ")") {
			st.sawRequire = true
			st.addDependency(Dependency{Source: src.text, All: true, Kind: KindValue, Optional: st.inTry(), Loc: st.loc(src)})
			st.pos += 4
			return
		}
	case "exports":
		if st.is(st.pos+1, tokPunct, ".") || st.is(st.pos+1, tokPunct, "=") {
			st.cjs = true
		}
	case "function":
		name := st.tok(st.pos + 1)
		if name.kind == tokPunct && name.text == "*" {
			name = st.tok(st.pos + 2)
		}
		if name.kind == tokIdent && len(st.braces) == 0 {
			st.declare(name, ValueFunction)
		}
		st.pendingFunc = len(st.parens)
	case "class":
		if name := st.tok(st.pos + 1); name.kind == tokIdent && name.text != "extends" && len(st.braces) == 0 {
			st.declare(name, ValueClass)
		}
		st.pendingClass = len(st.parens)
	case "const", "let", "var":
		if len(st.braces) == 0 {
			for _, name := range st.declaredNames(st.pos) {
				st.declare(name, ValueOther)
			}
		}
	case "try":
		if st.is(st.pos+1, tokPunct, "{") {
			st.pendingTry = true
		}
	case "await":
		if st.topLevel() && st.a.FirstTopAwaitLocation == nil {
			loc := st.loc(t)
			st.a.FirstTopAwaitLocation = &loc
		}
	default:
		st.markUsage(t)
	}
	st.pos++
}

func (st *scanState) declare(name token, kind ValueKind) {
	if _, ok := st.a.TopLevelLocalBindings[name.text]; !ok {
		st.a.TopLevelLocalBindings[name.text] = st.loc(name)
	}
	st.declKinds[name.text] = kind
}

func (st *scanState) markUsage(t token) {
	binding, ok := st.imports[t.text]
	if !ok || st.used[t.text] || binding.kind != KindValue || !st.topLevel() {
		return
	}
	// Object literal keys are not uses.
	if st.is(st.pos+1, tokPunct, ":") && (st.is(st.pos-1, tokPunct, "{") || st.is(st.pos-1, tokPunct, ",")) {
		return
	}
	st.used[t.text] = true
	st.a.ImportFirstUsage = append(st.a.ImportFirstUsage, FirstUsage{
		Source:   binding.source,
		Imported: binding.imported,
		Local:    t.text,
		Kind:     KindValue,
		Loc:      st.loc(t),
	})
}

// statementKeywords end a declaration list that was not closed by a semicolon.
var statementKeywords = map[string]bool{
	"const": true, "let": true, "var": true, "function": true, "class": true,
	"import": true, "export": true, "if": true, "for": true, "return": true,
}

// declaredNames returns the bindings introduced by the declaration starting
// at the const/let/var keyword at i.
func (st *scanState) declaredNames(i int) []token {
	var names []token
	j := i + 1
	for j < len(st.toks) {
		t := st.tok(j)
		switch {
		case t.kind == tokIdent:
			names = append(names, t)
			j++
		case t.kind == tokPunct && (t.text == "{" || t.text == "["):
			var pattern []token
			pattern, j = st.patternNames(j)
			names = append(names, pattern...)
		default:
			return names
		}
		// Skip the initializer up to the next declarator.
		depth := 0
	initializer:
		for ; j < len(st.toks); j++ {
			t := st.toks[j]
			if t.kind == tokIdent && depth == 0 && statementKeywords[t.text] {
				return names
			}
			if t.kind != tokPunct {
				continue
			}
			switch t.text {
			case "{", "[", "(":
				depth++
			case "}", "]", ")":
				if depth == 0 {
					return names
				}
				depth--
			case ";":
				return names
			case ",":
				if depth == 0 {
					j++
					break initializer
				}
			}
		}
	}
	return names
}

// patternNames reads a destructuring pattern starting at its opening
// bracket and returns the bound names and the position after the pattern.
func (st *scanState) patternNames(j int) ([]token, int) {
	var names []token
	depth := 0
	for j < len(st.toks) {
		t := st.toks[j]
		if t.kind == tokPunct {
			switch t.text {
			case "{", "[":
				depth++
			case "}", "]":
				depth--
				if depth == 0 {
					return names, j + 1
				}
			case "=":
				j = st.skipDefault(j + 1)
				continue
			}
		}
		if t.kind == tokIdent && !st.is(j+1, tokPunct, ":") && !st.is(j+1, tokPunct, "(") {
			names = append(names, t)
		}
		j++
	}
	return names, j
}

// skipDefault skips a default-value expression inside a binding pattern.
func (st *scanState) skipDefault(j int) int {
	depth := 0
	for j < len(st.toks) {
		t := st.toks[j]
		if t.kind == tokPunct {
			switch t.text {
			case "{", "[", "(":
				depth++
			case "}", "]", ")":
				if depth == 0 {
					return j
				}
				depth--
			case ",":
				if depth == 0 {
					return j
				}
			}
		}
		j++
	}
	return j
}

func (st *scanState) addDependency(d Dependency) {
	if idx, ok := st.deps[d.Source]; ok {
		existing := &st.a.Dependencies[idx]
		existing.All = existing.All || d.All
		existing.Async = existing.Async && d.Async
		existing.Optional = existing.Optional && d.Optional
		if d.Kind == KindValue {
			existing.Kind = KindValue
		}
		existing.Names = append(existing.Names, d.Names...)
		return
	}
	st.deps[d.Source] = len(st.a.Dependencies)
	st.a.Dependencies = append(st.a.Dependencies, d)
}

// modifierKind reads an inline "type"/"typeof" modifier at i.
func (st *scanState) modifierKind(i int, fallback ImportKind) (ImportKind, int) {
	t := st.tok(i)
	if t.kind != tokIdent || (t.text != "type" && t.text != "typeof") {
		return fallback, i
	}
	next := st.tok(i + 1)
	if next.kind == tokIdent && next.text != "as" && next.text != "from" || next.kind == tokPunct && (next.text == "{" || next.text == "*") {
		return ImportKind(t.text), i + 1
	}
	return fallback, i
}

type specifier struct {
	name  token
	alias token
	kind  ImportKind
}

// parseSpecifiers reads `{ a, b as c, type d }` starting at the opening brace
// and returns the position after the closing brace.
func (st *scanState) parseSpecifiers(i int, kind ImportKind) ([]specifier, int) {
	i++
	var out []specifier
	for i < len(st.toks) && !st.is(i, tokPunct, "}") {
		if st.is(i, tokPunct, ",") {
			i++
			continue
		}
		itemKind, j := st.modifierKind(i, kind)
		name := st.tok(j)
		if name.kind != tokIdent && name.kind != tokString {
			i = j + 1
			continue
		}
		spec := specifier{name: name, alias: name, kind: itemKind}
		j++
		if st.is(j, tokIdent, "as") {
			spec.alias = st.tok(j + 1)
			j += 2
		}
		out = append(out, spec)
		i = j
	}
	return out, i + 1
}

// parseFrom reads `from "<source>"` at i.
func (st *scanState) parseFrom(i int) (token, int, bool) {
	if !st.is(i, tokIdent, "from") {
		return token{}, i, false
	}
	src := st.tok(i + 1)
	if src.kind != tokString {
		return token{}, i + 1, false
	}
	return src, i + 2, true
}

func (st *scanState) parseImport() {
	st.esm = true
	i := st.pos + 1
	kind, i := st.modifierKind(i, KindValue)

	if src := st.tok(i); src.kind == tokString {
		st.addDependency(Dependency{Source: src.text, Kind: kind, Loc: st.loc(src)})
		st.pos = i + 1
		return
	}

	var names []ImportedName
	type local struct {
		name     string
		imported string
		kind     ImportKind
	}
	var locals []local
	all := false

	if t := st.tok(i); t.kind == tokIdent && t.text != "from" {
		names = append(names, ImportedName{Name: "default", Kind: kind, Loc: st.loc(t)})
		locals = append(locals, local{t.text, "default", kind})
		i++
		if st.is(i, tokPunct, ",") {
			i++
		}
	}
	if st.is(i, tokPunct, "*") && st.is(i+1, tokIdent, "as") {
		all = true
		if ns := st.tok(i + 2); ns.kind == tokIdent {
			locals = append(locals, local{ns.text, "*", kind})
		}
		i += 3
	}
	if st.is(i, tokPunct, "{") {
		var specs []specifier
		specs, i = st.parseSpecifiers(i, kind)
		for _, s := range specs {
			names = append(names, ImportedName{Name: s.name.text, Kind: s.kind, Loc: st.loc(s.name)})
			locals = append(locals, local{s.alias.text, s.name.text, s.kind})
		}
	}

	src, next, ok := st.parseFrom(i)
	st.pos = next
	if !ok {
		return
	}
	st.addDependency(Dependency{Source: src.text, All: all, Kind: kind, Loc: st.loc(src), Names: names})
	for _, l := range locals {
		st.imports[l.name] = importBinding{source: src.text, imported: l.imported, kind: l.kind}
	}
}

func (st *scanState) parseExport() {
	st.esm = true
	start := st.tok(st.pos)
	i := st.pos + 1
	t := st.tok(i)

	if t.kind == tokIdent && t.text == "declare" {
		i++
		t = st.tok(i)
	}

	switch {
	case t.kind == tokIdent && t.text == "default":
		valueKind := ValueOther
		next := st.tok(i + 1)
		if next.kind == tokIdent && next.text == "async" && st.is(i+2, tokIdent, "function") {
			next = st.tok(i + 2)
		}
		switch {
		case next.kind == tokIdent && next.text == "function":
			valueKind = ValueFunction
		case next.kind == tokIdent && next.text == "class":
			valueKind = ValueClass
		}
		st.a.Exports = append(st.a.Exports, LocalExport{Name: "default", Kind: KindValue, ValueKind: valueKind, Loc: st.loc(t)})
		st.pos = i + 1

	case t.kind == tokPunct && t.text == "*":
		i++
		exported := ""
		if st.is(i, tokIdent, "as") {
			exported = st.tok(i + 1).text
			i += 2
		}
		src, next, ok := st.parseFrom(i)
		st.pos = next
		if !ok {
			return
		}
		if exported != "" {
			st.a.Exports = append(st.a.Exports, ExternalNamespaceExport{Exported: exported, Source: src.text, Kind: KindValue, Loc: st.loc(start)})
		} else {
			st.a.Exports = append(st.a.Exports, ExternalAllExport{Source: src.text, Kind: KindValue, Loc: st.loc(start)})
		}
		st.addDependency(Dependency{Source: src.text, All: true, Kind: KindValue, Loc: st.loc(src)})

	case t.kind == tokPunct && t.text == "{", t.kind == tokIdent && t.text == "type" && st.is(i+1, tokPunct, "{"):
		kind := KindValue
		if t.text == "type" {
			kind = KindType
			i++
		}
		specs, next := st.parseSpecifiers(i, kind)
		src, after, ok := st.parseFrom(next)
		if ok {
			var names []ImportedName
			for _, s := range specs {
				st.a.Exports = append(st.a.Exports, ExternalExport{Exported: s.alias.text, Imported: s.name.text, Source: src.text, Kind: s.kind, Loc: st.loc(s.name)})
				names = append(names, ImportedName{Name: s.name.text, Kind: s.kind, Loc: st.loc(s.name)})
			}
			st.addDependency(Dependency{Source: src.text, Kind: kind, Loc: st.loc(src), Names: names})
			st.pos = after
			return
		}
		for _, s := range specs {
			st.localExports = append(st.localExports, len(st.a.Exports))
			st.a.Exports = append(st.a.Exports, LocalExport{Name: s.alias.text, Kind: s.kind, Loc: st.loc(s.name)})
			// The local name is resolved in finish.
			st.pendingLocalNames = append(st.pendingLocalNames, s.name.text)
		}
		st.pos = next

	case t.kind == tokIdent && (t.text == "type" || t.text == "interface"):
		if name := st.tok(i + 1); name.kind == tokIdent {
			st.a.Exports = append(st.a.Exports, LocalExport{Name: name.text, Kind: KindType, Loc: st.loc(name)})
		}
		st.pos = i + 1

	case t.kind == tokIdent && (t.text == "function" || t.text == "async" || t.text == "class" || t.text == "enum" || t.text == "abstract"):
		j := i
		valueKind := ValueOther
		for st.tok(j).kind == tokIdent && (st.tok(j).text == "async" || st.tok(j).text == "abstract") {
			j++
		}
		switch st.tok(j).text {
		case "function":
			valueKind = ValueFunction
		case "class":
			valueKind = ValueClass
		}
		name := st.tok(j + 1)
		if name.kind == tokPunct && name.text == "*" {
			name = st.tok(j + 2)
		}
		if name.kind == tokIdent {
			st.a.Exports = append(st.a.Exports, LocalExport{Name: name.text, Kind: KindValue, ValueKind: valueKind, Loc: st.loc(name)})
		}
		// The declaration itself is handled by the main loop.
		st.pos = j

	case t.kind == tokIdent && (t.text == "const" || t.text == "let" || t.text == "var"):
		for _, name := range st.declaredNames(i) {
			st.a.Exports = append(st.a.Exports, LocalExport{Name: name.text, Kind: KindValue, Loc: st.loc(name)})
		}
		st.pos = i

	default:
		st.pos = i
	}
}

// finish settles export kinds that depend on the whole file and the module kind.
func (st *scanState) finish() {
	for n, idx := range st.localExports {
		local := st.pendingLocalNames[n]
		exp := st.a.Exports[idx].(LocalExport)
		if binding, ok := st.imports[local]; ok {
			// `import {a} from "x"; export {a}` forwards the import.
			if binding.imported == "*" {
				st.a.Exports[idx] = ExternalNamespaceExport{Exported: exp.Name, Source: binding.source, Kind: exp.Kind, Loc: exp.Loc}
			} else {
				st.a.Exports[idx] = ExternalExport{Exported: exp.Name, Imported: binding.imported, Source: binding.source, Kind: exp.Kind, Loc: exp.Loc}
			}
			continue
		}
		exp.ValueKind = st.declKinds[local]
		st.a.Exports[idx] = exp
	}
	if !st.esm && (st.cjs || st.sawRequire) {
		st.a.ModuleKind = ModuleCJS
	}
}
