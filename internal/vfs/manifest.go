package vfs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Manifest is the subset of a package manifest the resolver reads.
type Manifest struct {
	Name string
	Main string
	// PlatformMains holds "<platform>:main" entries keyed by platform.
	PlatformMains map[string]string
	// Exports is nil when the manifest has no "exports" field.
	Exports *Exports
	Bin     map[string]string
	Files   []string
}

// Exports is the parsed "exports" field.
type Exports struct {
	// Disabled is set for `"exports": false`: no subpath is reachable through it.
	Disabled bool
	// Entries maps a subpath ("." or "./x", possibly with one "*") to its target.
	// A nil target blocks the subpath.
	Entries map[string]*ExportTarget
}

// ExportTarget is either a plain path or a set of conditional targets.
type ExportTarget struct {
	Path       string
	Conditions map[string]*ExportTarget
}

// ParseManifest decodes a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	m := &Manifest{PlatformMains: map[string]string{}}
	m.Name, _ = raw["name"].(string)
	m.Main, _ = raw["main"].(string)
	for key, value := range raw {
		platform, ok := strings.CutSuffix(key, ":main")
		if !ok || platform == "" {
			continue
		}
		if s, ok := value.(string); ok {
			m.PlatformMains[platform] = s
		}
	}

	switch bin := raw["bin"].(type) {
	case string:
		m.Bin = map[string]string{m.Name: bin}
	case map[string]any:
		m.Bin = make(map[string]string, len(bin))
		for k, v := range bin {
			if s, ok := v.(string); ok {
				m.Bin[k] = s
			}
		}
	}
	if files, ok := raw["files"].([]any); ok {
		for _, f := range files {
			if s, ok := f.(string); ok {
				m.Files = append(m.Files, s)
			}
		}
	}

	if value, ok := raw["exports"]; ok {
		exports, err := parseExports(value)
		if err != nil {
			return nil, err
		}
		m.Exports = exports
	}
	return m, nil
}

func parseExports(value any) (*Exports, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		if v {
			return nil, fmt.Errorf("invalid exports: true is not a valid value")
		}
		return &Exports{Disabled: true}, nil
	case string:
		return &Exports{Entries: map[string]*ExportTarget{".": {Path: v}}}, nil
	case map[string]any:
		subpaths := 0
		for key := range v {
			if strings.HasPrefix(key, ".") {
				subpaths++
			}
		}
		if subpaths == 0 {
			// Only conditions: sugar for the package root.
			return &Exports{Entries: map[string]*ExportTarget{".": parseTarget(v)}}, nil
		}
		if subpaths != len(v) {
			return nil, fmt.Errorf("invalid exports: cannot mix subpaths and conditions")
		}
		e := &Exports{Entries: make(map[string]*ExportTarget, len(v))}
		for key, target := range v {
			e.Entries[key] = parseTarget(target)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("invalid exports: unexpected %T", value)
	}
}

func parseTarget(value any) *ExportTarget {
	switch v := value.(type) {
	case string:
		return &ExportTarget{Path: v}
	case map[string]any:
		t := &ExportTarget{Conditions: make(map[string]*ExportTarget, len(v))}
		for cond, nested := range v {
			if parsed := parseTarget(nested); parsed != nil {
				t.Conditions[cond] = parsed
			}
		}
		return t
	case []any:
		// Fallback arrays: the first usable entry wins.
		for _, item := range v {
			if parsed := parseTarget(item); parsed != nil {
				return parsed
			}
		}
	}
	return nil
}

// Declared reports whether the manifest restricts which subpaths are reachable.
func (e *Exports) Declared() bool {
	return e != nil
}

// Lookup returns the target path for a subpath ("." or "./x"). Conditions
// are tried in the given order, then "default". ok is false when the subpath
// is not exported, is blocked, or no condition matches.
func (e *Exports) Lookup(subpath string, conditions ...string) (string, bool) {
	if e == nil || e.Disabled {
		return "", false
	}
	if target, ok := e.Entries[subpath]; ok {
		return target.selectPath(conditions, "")
	}

	// Pattern entries: the longest matching prefix wins.
	var best, bestKey string
	for key := range e.Entries {
		prefix, suffix, ok := strings.Cut(key, "*")
		if !ok || !strings.HasPrefix(subpath, prefix) || !strings.HasSuffix(subpath, suffix) {
			continue
		}
		if len(subpath) < len(prefix)+len(suffix) {
			continue
		}
		if len(prefix) > len(bestKey) || (len(prefix) == len(bestKey) && key < best) {
			best, bestKey = key, prefix
		}
	}
	if best == "" {
		return "", false
	}
	prefix, suffix, _ := strings.Cut(best, "*")
	match := subpath[len(prefix) : len(subpath)-len(suffix)]
	return e.Entries[best].selectPath(conditions, match)
}

// Subpaths lists the exported subpaths, sorted.
func (e *Exports) Subpaths() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Entries))
	for key, target := range e.Entries {
		if target != nil {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func (t *ExportTarget) selectPath(conditions []string, match string) (string, bool) {
	if t == nil {
		return "", false
	}
	if t.Conditions == nil {
		if t.Path == "" {
			return "", false
		}
		return strings.ReplaceAll(t.Path, "*", match), true
	}
	for i := 0; i <= len(conditions); i++ {
		cond := "default"
		if i < len(conditions) {
			cond = conditions[i]
		}
		if nested, ok := t.Conditions[cond]; ok {
			if p, ok := nested.selectPath(conditions, match); ok {
				return p, true
			}
		}
	}
	return "", false
}
