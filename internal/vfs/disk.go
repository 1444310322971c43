package vfs

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rome/tools-sub007/internal/ctxlog"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// DefaultManifestCacheSize bounds the number of parsed manifests kept by Disk.
const DefaultManifestCacheSize = 4096

type manifestEntry struct {
	manifest *Manifest
	ok       bool
}

// Disk is an FS over the local file system, accessed through afs.
type Disk struct {
	fs        afs.Service
	manifests *lru.Cache[string, manifestEntry]
}

var _ FS = (*Disk)(nil)

// NewDisk creates a Disk with a manifest cache of the given size.
func NewDisk(fs afs.Service, cacheSize int) (*Disk, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultManifestCacheSize
	}
	cache, err := lru.New[string, manifestEntry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest cache: %w", err)
	}
	return &Disk{fs: fs, manifests: cache}, nil
}

func fileURL(p string) string {
	return file.Scheme + "://" + p
}

func (d *Disk) IsFile(ctx context.Context, p string) bool {
	obj, err := d.fs.Object(ctx, fileURL(p))
	return err == nil && !obj.IsDir()
}

func (d *Disk) IsDirectory(ctx context.Context, p string) bool {
	obj, err := d.fs.Object(ctx, fileURL(p))
	return err == nil && obj.IsDir()
}

func (d *Disk) Exists(ctx context.Context, p string) bool {
	ok, err := d.fs.Exists(ctx, fileURL(p))
	return err == nil && ok
}

func (d *Disk) ReadDir(ctx context.Context, dir string) ([]string, error) {
	dirURL := fileURL(dir)
	objects, err := d.fs.List(ctx, dirURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		if url.Equals(obj.URL(), dirURL) {
			continue
		}
		names = append(names, obj.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (d *Disk) ReadFile(ctx context.Context, p string) ([]byte, error) {
	data, err := d.fs.DownloadWithURL(ctx, fileURL(p))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

func (d *Disk) WriteFile(ctx context.Context, p string, data []byte) error {
	if err := d.fs.Upload(ctx, fileURL(p), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	d.Forget(p)
	return nil
}

func (d *Disk) Manifest(ctx context.Context, dir string) (*Manifest, bool) {
	if entry, ok := d.manifests.Get(dir); ok {
		return entry.manifest, entry.ok
	}
	entry := manifestEntry{}
	manifestPath := path.Join(dir, ManifestFile)
	if d.IsFile(ctx, manifestPath) {
		data, err := d.ReadFile(ctx, manifestPath)
		if err == nil {
			entry.manifest, err = ParseManifest(data)
		}
		if err != nil {
			ctxlog.FromContext(ctx).Warn("Ignoring unreadable manifest.", "path", manifestPath, "error", err)
		} else {
			entry.ok = true
		}
	}
	d.manifests.Add(dir, entry)
	return entry.manifest, entry.ok
}

// Forget evicts the cached manifest of path, whether path is the
// directory itself or a file inside it.
func (d *Disk) Forget(p string) {
	d.manifests.Remove(p)
	d.manifests.Remove(path.Dir(p))
}
