package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"sync"

	"github.com/pkg/errors"
	"github.com/rome/tools-sub007/internal/ctxlog"
	"github.com/rome/tools-sub007/internal/metrics"
	"github.com/rome/tools-sub007/internal/vfs"
	"github.com/viant/afs"
	"golang.org/x/sync/singleflight"
)

// RemoteFetcher downloads remote modules with afs and stores them under
// <vendor>/<host>/<hash>/<base>. A vendored file is reused as is, so the
// content for a URL is fetched once per vendor directory.
type RemoteFetcher struct {
	fs        afs.Service
	files     vfs.FS
	vendorDir string
	group     singleflight.Group

	mu      sync.RWMutex
	sources map[string]string
}

var _ Fetcher = (*RemoteFetcher)(nil)

// NewRemoteFetcher creates a fetcher writing into vendorDir through files.
func NewRemoteFetcher(fs afs.Service, files vfs.FS, vendorDir string) *RemoteFetcher {
	return &RemoteFetcher{
		fs:        fs,
		files:     files,
		vendorDir: vendorDir,
		sources:   make(map[string]string),
	}
}

// VendorPath returns where rawURL is stored locally.
func (f *RemoteFetcher) VendorPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid remote specifier %q", rawURL)
	}
	if u.Host == "" {
		return "", errors.Errorf("remote specifier %q has no host", rawURL)
	}
	sum := sha256.Sum256([]byte(rawURL))
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		base = "index.js"
	}
	return path.Join(f.vendorDir, u.Host, hex.EncodeToString(sum[:])[:12], base), nil
}

// Fetch returns the vendored path for rawURL, downloading it first if needed.
// Concurrent fetches of the same URL share one download.
func (f *RemoteFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	dest, err := f.VendorPath(rawURL)
	if err != nil {
		return "", err
	}
	logger := ctxlog.FromContext(ctx).With("url", rawURL, "vendor_path", dest)

	_, err, shared := f.group.Do(dest, func() (any, error) {
		// The download is shared by every waiter and outlives the caller's cancellation.
		ctx := context.WithoutCancel(ctx)
		if f.files.IsFile(ctx, dest) {
			metrics.RecordRemoteFetch("reused")
			logger.Debug("Reusing vendored remote module.")
			return nil, nil
		}
		logger.Debug("Downloading remote module.")
		data, err := f.fs.DownloadWithURL(ctx, rawURL)
		if err != nil {
			metrics.RecordRemoteFetch("error")
			return nil, errors.Wrapf(err, "failed to download %s", rawURL)
		}
		if err := f.files.WriteFile(ctx, dest, data); err != nil {
			metrics.RecordRemoteFetch("error")
			return nil, errors.Wrapf(err, "failed to vendor %s into %s", rawURL, dest)
		}
		metrics.RecordRemoteFetch("downloaded")
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		logger.Debug("Shared an in-flight remote download.")
	}

	f.mu.Lock()
	f.sources[dest] = rawURL
	f.mu.Unlock()
	return dest, nil
}

// SourceURL maps a vendored file back to its URL.
func (f *RemoteFetcher) SourceURL(p string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, ok := f.sources[p]
	return u, ok
}

// joinURL resolves a relative specifier against the URL of the importing module.
func joinURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(err, "invalid remote origin %q", base)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrapf(err, "invalid specifier %q", ref)
	}
	return b.ResolveReference(r).String(), nil
}
