package vfs

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/rome/tools-sub007/internal/ctxlog"
)

// Memory is an in-memory FS. Directories exist implicitly for every
// ancestor of a stored file.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]map[string]struct{}
}

var _ FS = (*Memory)(nil)

// NewMemory creates an empty in-memory file system.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
		dirs:  map[string]map[string]struct{}{"/": {}},
	}
}

// AddFile stores a file, creating its ancestor directories.
func (m *Memory) AddFile(p, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addFile(path.Clean(p), []byte(content))
}

// AddDir creates an empty directory and its ancestors.
func (m *Memory) AddDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addDir(path.Clean(p))
}

// Remove deletes a file.
func (m *Memory) Remove(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = path.Clean(p)
	delete(m.files, p)
	delete(m.dirs[path.Dir(p)], path.Base(p))
}

func (m *Memory) addFile(p string, data []byte) {
	m.files[p] = data
	m.addDir(path.Dir(p))
	m.dirs[path.Dir(p)][path.Base(p)] = struct{}{}
}

func (m *Memory) addDir(p string) {
	for {
		if _, ok := m.dirs[p]; !ok {
			m.dirs[p] = make(map[string]struct{})
		}
		if p == "/" || p == "." {
			return
		}
		parent := path.Dir(p)
		if _, ok := m.dirs[parent]; !ok {
			m.dirs[parent] = make(map[string]struct{})
		}
		m.dirs[parent][path.Base(p)] = struct{}{}
		p = parent
	}
}

func (m *Memory) IsFile(_ context.Context, p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[path.Clean(p)]
	return ok
}

func (m *Memory) IsDirectory(_ context.Context, p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.dirs[path.Clean(p)]
	return ok
}

func (m *Memory) Exists(ctx context.Context, p string) bool {
	return m.IsFile(ctx, p) || m.IsDirectory(ctx, p)
}

func (m *Memory) ReadDir(_ context.Context, dir string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	children, ok := m.dirs[path.Clean(dir)]
	if !ok {
		return nil, fmt.Errorf("failed to list %s: no such directory", dir)
	}
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) ReadFile(_ context.Context, p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path.Clean(p)]
	if !ok {
		return nil, fmt.Errorf("failed to read %s: no such file", p)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) WriteFile(_ context.Context, p string, data []byte) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("failed to write %s: path must be absolute", p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addFile(path.Clean(p), append([]byte(nil), data...))
	return nil
}

func (m *Memory) Manifest(ctx context.Context, dir string) (*Manifest, bool) {
	data, err := m.ReadFile(ctx, path.Join(dir, ManifestFile))
	if err != nil {
		return nil, false
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Ignoring unreadable manifest.", "dir", dir, "error", err)
		return nil, false
	}
	return manifest, true
}

// Forget is a no-op: Memory keeps no derived state.
func (m *Memory) Forget(string) {}
