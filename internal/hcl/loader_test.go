package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rome/tools-sub007/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "project.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoader_Load(t *testing.T) {
	// --- Arrange ---
	path := writeProject(t, `
		project "mobile" {
			externals     = ["react", "react-native"]
			default_scale = 2
			extensions    = ["js", "ts"]
			concurrency   = 4

			virtual_modules = {
				"virtual:env" = "src/env.js"
			}

			platform "ios" {
				aliases = ["native", "mobile"]
			}
			platform "web" {}

			package "shared" {
				path = "packages/shared"
			}
		}
	`)
	root := filepath.Dir(path)

	// --- Act ---
	got, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	want := &config.Project{
		Name:           "mobile",
		Root:           root,
		Externals:      []string{"react", "react-native"},
		Platforms:      map[string][]string{"ios": {"native", "mobile"}, "web": nil},
		DefaultScale:   2,
		Extensions:     []string{"js", "ts"},
		Packages:       map[string]string{"shared": filepath.Join(root, "packages/shared")},
		VirtualModules: map[string]string{"virtual:env": filepath.Join(root, "src/env.js")},
		VendorDir:      filepath.Join(root, config.DefaultVendorDir),
		MocksDir:       config.DefaultMocksDir,
		Concurrency:    4,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_Load_Defaults(t *testing.T) {
	path := writeProject(t, `project "bare" {}`)

	got, err := NewLoader().Load(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, config.DefaultExtensions, got.Extensions)
	assert.Equal(t, 0, got.DefaultScale)
	assert.Empty(t, got.VirtualModules)
	assert.Equal(t, config.DefaultConcurrency, got.Concurrency)
}

func TestLoader_Load_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"no project", `foo = 1`, "no project block"},
		{"two projects", `
			project "a" {}
			project "b" {}
		`, "expected one"},
		{"duplicate platform", `
			project "a" {
				platform "ios" {}
				platform "ios" {}
			}
		`, `platform "ios" declared more than once`},
		{"negative scale", `project "a" { default_scale = -1 }`, "must not be negative"},
		{"virtual modules not a map", `project "a" { virtual_modules = "nope" }`, "must be a map of strings"},
		{"syntax", `project "a" {`, "failed to parse"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeProject(t, tc.content)
			_, err := NewLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent.hcl"))
	require.Error(t, err)
}
