package vfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

func TestDisk(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg", "lib"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "package.json"), []byte(`{"name":"pkg","main":"lib/a.js"}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "lib", "a.js"), []byte("a"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "lib", "b.js"), []byte("b"), 0600))

	d, err := NewDisk(afs.New(), 0)
	require.NoError(t, err)

	lib := filepath.ToSlash(filepath.Join(root, "pkg", "lib"))
	assert.True(t, d.IsDirectory(ctx, lib))
	assert.False(t, d.IsFile(ctx, lib))
	assert.True(t, d.IsFile(ctx, lib+"/a.js"))
	assert.True(t, d.Exists(ctx, lib+"/b.js"))
	assert.False(t, d.Exists(ctx, lib+"/c.js"))

	names, err := d.ReadDir(ctx, lib)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "b.js"}, names)

	data, err := d.ReadFile(ctx, lib+"/a.js")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	require.NoError(t, d.WriteFile(ctx, lib+"/c.js", []byte("c")))
	assert.True(t, d.IsFile(ctx, lib+"/c.js"))

	pkg := filepath.ToSlash(filepath.Join(root, "pkg"))
	m, ok := d.Manifest(ctx, pkg)
	require.True(t, ok)
	assert.Equal(t, "lib/a.js", m.Main)

	// Cached until forgotten.
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "package.json"), []byte(`{"name":"pkg","main":"lib/b.js"}`), 0600))
	m, _ = d.Manifest(ctx, pkg)
	assert.Equal(t, "lib/a.js", m.Main)

	d.Forget(pkg + "/package.json")
	m, _ = d.Manifest(ctx, pkg)
	assert.Equal(t, "lib/b.js", m.Main)

	_, ok = d.Manifest(ctx, lib)
	assert.False(t, ok)
}
