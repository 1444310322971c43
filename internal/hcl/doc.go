// Package hcl provides the HCL implementation of the config.Loader interface.
// It parses a `project.hcl` file, decodes its blocks with gohcl and
// translates them into the format-agnostic config.Project.
package hcl
