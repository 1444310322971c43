package config

import (
	"path"
	"sort"
	"strings"
)

// DefaultExtensions lists the file types that have a handler, in the order
// implicit extensions are tried.
var DefaultExtensions = []string{"js", "jsx", "mjs", "cjs", "ts", "tsx", "json", "png", "jpg", "jpeg", "gif", "webp", "bmp"}

// assetExtensions are handled as opaque assets exposing a single default export.
var assetExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
}

// IsAsset reports whether the file name ends in an image asset extension.
func IsAsset(name string) bool {
	return assetExtensions[strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))]
}

const (
	// DefaultMocksDir is the reserved folder searched when mocks are enabled.
	DefaultMocksDir = "__mocks__"
	// DefaultVendorDir holds downloaded remote modules, relative to the project root.
	DefaultVendorDir = ".vendor"
	// DefaultConcurrency bounds the graph work queues.
	DefaultConcurrency = 8
)

// Project is the unified, format-agnostic representation of a project's
// configuration as seen by the resolver and the dependency graph.
type Project struct {
	Name string
	// Root is the absolute directory the configuration was loaded from.
	Root string
	// Externals are specifiers never resolved nor bundled.
	Externals []string
	// Platforms maps a platform to the sub-platform aliases tried after it.
	Platforms map[string][]string
	// DefaultScale is used when a query does not request a scale. Zero disables scale variants.
	DefaultScale int
	// Extensions are the known file-type handlers.
	Extensions []string
	// Packages maps declared package names to absolute directories.
	Packages map[string]string
	// VirtualModules maps a module name to the absolute file it redirects to.
	VirtualModules map[string]string
	VendorDir      string
	MocksDir       string
	MaxDiagnostics int
	Concurrency    int
}

// Default returns a project rooted at dir with every optional field filled.
func Default(root string) *Project {
	p := &Project{Root: root}
	p.ApplyDefaults()
	return p
}

// ApplyDefaults fills zero-valued fields and makes relative paths absolute
// against Root. Loaders call it after translation.
func (p *Project) ApplyDefaults() {
	if p.Name == "" {
		p.Name = path.Base(p.Root)
	}
	if len(p.Extensions) == 0 {
		p.Extensions = append([]string(nil), DefaultExtensions...)
	}
	for i, ext := range p.Extensions {
		p.Extensions[i] = strings.TrimPrefix(ext, ".")
	}
	if p.VendorDir == "" {
		p.VendorDir = DefaultVendorDir
	}
	p.VendorDir = p.abs(p.VendorDir)
	if p.MocksDir == "" {
		p.MocksDir = DefaultMocksDir
	}
	if p.Concurrency <= 0 {
		p.Concurrency = DefaultConcurrency
	}
	if p.Platforms == nil {
		p.Platforms = map[string][]string{}
	}
	for name, dir := range p.Packages {
		p.Packages[name] = p.abs(dir)
	}
	for name, file := range p.VirtualModules {
		p.VirtualModules[name] = p.abs(file)
	}
}

func (p *Project) abs(rel string) string {
	if path.IsAbs(rel) {
		return path.Clean(rel)
	}
	return path.Join(p.Root, rel)
}

// PlatformAliases returns the platform followed by its declared sub-platform aliases.
func (p *Project) PlatformAliases(platform string) []string {
	if platform == "" {
		return nil
	}
	return append([]string{platform}, p.Platforms[platform]...)
}

// PlatformNames returns every declared platform, sorted.
func (p *Project) PlatformNames() []string {
	names := make([]string, 0, len(p.Platforms))
	for name := range p.Platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasExtension reports whether the file name ends in a known handler extension.
func (p *Project) HasExtension(name string) bool {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return false
	}
	for _, known := range p.Extensions {
		if known == ext {
			return true
		}
	}
	return false
}

// IsExternal reports whether a specifier is excluded from resolution: either
// declared external by the project or a platform built-in module.
func (p *Project) IsExternal(specifier string) bool {
	for _, ext := range p.Externals {
		if specifier == ext || strings.HasPrefix(specifier, ext+"/") {
			return true
		}
	}
	return IsBuiltin(specifier)
}

// VirtualPath implements the resolver's virtual-module registry.
func (p *Project) VirtualPath(name string) (string, bool) {
	file, ok := p.VirtualModules[name]
	return file, ok
}
