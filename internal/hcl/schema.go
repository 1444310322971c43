package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes all top-level blocks of a project file.
type fileRoot struct {
	Projects []*projectBlock `hcl:"project,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

// projectBlock is a `project "<name>" { ... }` block.
type projectBlock struct {
	Name           string           `hcl:"name,label"`
	Externals      []string         `hcl:"externals,optional"`
	DefaultScale   *int             `hcl:"default_scale,optional"`
	Extensions     []string         `hcl:"extensions,optional"`
	VendorDir      *string          `hcl:"vendor_dir,optional"`
	MocksDir       *string          `hcl:"mocks_dir,optional"`
	MaxDiagnostics *int             `hcl:"max_diagnostics,optional"`
	Concurrency    *int             `hcl:"concurrency,optional"`
	VirtualModules hcl.Expression   `hcl:"virtual_modules,optional"`
	Platforms      []*platformBlock `hcl:"platform,block"`
	Packages       []*packageBlock  `hcl:"package,block"`
}

// platformBlock declares a platform and the sub-platforms tried after it.
type platformBlock struct {
	Name    string   `hcl:"name,label"`
	Aliases []string `hcl:"aliases,optional"`
}

// packageBlock declares a project package by name.
type packageBlock struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}
