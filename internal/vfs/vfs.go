// Package vfs is the file system seen by the resolver: existence checks,
// directory listings and package manifests. Disk is backed by viant/afs,
// Memory is a map-backed implementation for tests and virtual inputs.
package vfs

import (
	"context"
)

// ManifestFile is the package manifest looked up in every directory.
const ManifestFile = "package.json"

// FS is the file system contract consumed by the resolver and the graph.
// Paths are absolute and slash-separated.
type FS interface {
	IsFile(ctx context.Context, path string) bool
	IsDirectory(ctx context.Context, path string) bool
	Exists(ctx context.Context, path string) bool
	// ReadDir returns the sorted base names of a directory's children.
	ReadDir(ctx context.Context, dir string) ([]string, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	// Manifest returns the parsed manifest of dir. ok is false when the
	// directory has no manifest or it cannot be parsed.
	Manifest(ctx context.Context, dir string) (m *Manifest, ok bool)
	// Forget drops any cached state for path.
	Forget(path string)
}
