package config

import "strings"

// builtinModules contains the platform's core modules. These are provided by
// the runtime and never resolved to files.
var builtinModules = map[string]bool{
	"assert":              true,
	"async_hooks":         true,
	"buffer":              true,
	"child_process":       true,
	"cluster":             true,
	"console":             true,
	"constants":           true,
	"crypto":              true,
	"dgram":               true,
	"diagnostics_channel": true,
	"dns":                 true,
	"domain":              true,
	"events":              true,
	"fs":                  true,
	"http":                true,
	"http2":               true,
	"https":               true,
	"inspector":           true,
	"module":              true,
	"net":                 true,
	"os":                  true,
	"path":                true,
	"perf_hooks":          true,
	"process":             true,
	"punycode":            true,
	"querystring":         true,
	"readline":            true,
	"repl":                true,
	"stream":              true,
	"string_decoder":      true,
	"sys":                 true,
	"timers":              true,
	"tls":                 true,
	"trace_events":        true,
	"tty":                 true,
	"url":                 true,
	"util":                true,
	"v8":                  true,
	"vm":                  true,
	"wasi":                true,
	"worker_threads":      true,
	"zlib":                true,
}

// IsBuiltin reports whether a specifier names a built-in module. Both bare
// names ("fs"), "node:"-prefixed names and subpaths ("fs/promises") match.
func IsBuiltin(specifier string) bool {
	if rest, ok := strings.CutPrefix(specifier, "node:"); ok {
		specifier = rest
	}
	if i := strings.IndexByte(specifier, '/'); i >= 0 {
		specifier = specifier[:i]
	}
	return builtinModules[specifier]
}
