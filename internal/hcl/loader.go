package hcl

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rome/tools-sub007/internal/config"
	"github.com/rome/tools-sub007/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses a single project file. Exactly one project block is expected.
func (l *Loader) Load(ctx context.Context, path string) (*config.Project, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(abs)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", abs, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", abs, diags)
	}

	switch len(root.Projects) {
	case 0:
		return nil, fmt.Errorf("no project block found in %s", abs)
	case 1:
	default:
		return nil, fmt.Errorf("%s declares %d project blocks, expected one", abs, len(root.Projects))
	}

	project, err := l.translateProject(ctx, root.Projects[0], filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", abs, err)
	}

	logger.Debug("HCL loading complete.",
		"project", project.Name,
		"platforms", len(project.Platforms),
		"packages", len(project.Packages),
		"virtual_modules", len(project.VirtualModules),
	)
	return project, nil
}
