// Package yamlconfig provides a YAML implementation of the config.Loader
// interface for projects described by a `project.yaml` file.
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rome/tools-sub007/internal/config"
	"github.com/rome/tools-sub007/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

type document struct {
	Name           string              `yaml:"name"`
	Externals      []string            `yaml:"externals"`
	Platforms      map[string][]string `yaml:"platforms"`
	DefaultScale   int                 `yaml:"default_scale"`
	Extensions     []string            `yaml:"extensions"`
	Packages       map[string]string   `yaml:"packages"`
	VirtualModules map[string]string   `yaml:"virtual_modules"`
	VendorDir      string              `yaml:"vendor_dir"`
	MocksDir       string              `yaml:"mocks_dir"`
	MaxDiagnostics int                 `yaml:"max_diagnostics"`
	Concurrency    int                 `yaml:"concurrency"`
}

// Loader reads project files written in YAML.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load decodes the file strictly: unknown keys are an error.
func (l *Loader) Load(ctx context.Context, path string) (*config.Project, error) {
	logger := ctxlog.FromContext(ctx)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", abs, err)
	}
	if doc.DefaultScale < 0 {
		return nil, fmt.Errorf("in %s: default_scale must not be negative, got %d", abs, doc.DefaultScale)
	}

	p := &config.Project{
		Name:           doc.Name,
		Root:           filepath.Dir(abs),
		Externals:      doc.Externals,
		Platforms:      doc.Platforms,
		DefaultScale:   doc.DefaultScale,
		Extensions:     doc.Extensions,
		Packages:       doc.Packages,
		VirtualModules: doc.VirtualModules,
		VendorDir:      doc.VendorDir,
		MocksDir:       doc.MocksDir,
		MaxDiagnostics: doc.MaxDiagnostics,
		Concurrency:    doc.Concurrency,
	}
	p.ApplyDefaults()

	logger.Debug("YAML loading complete.", "project", p.Name, "platforms", len(p.Platforms), "packages", len(p.Packages))
	return p, nil
}
