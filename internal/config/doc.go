// Package config defines the format-agnostic project configuration model,
// along with the Loader interface for reading it from various sources.
//
// The `config.Project` is the single source of truth for the `resolver` and
// `depgraph` packages. Concrete loaders, such as for HCL and YAML, are
// provided in separate packages.
package config
