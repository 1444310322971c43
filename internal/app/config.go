package app

import (
	"errors"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Entries     []string
	ProjectFile string // project.hcl or project.yaml; empty means defaults rooted at Root
	Root        string

	Platform     string
	Scale        int
	Mocks        bool
	Validate     bool
	AllowMissing bool
	Watch        bool

	FeedURL         string
	HealthcheckPort int
	Concurrency     int
	MaxDiagnostics  int

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Entries) == 0 {
		return nil, errors.New("at least one entry point is required")
	}
	if cfg.ProjectFile == "" && cfg.Root == "" {
		return nil, errors.New("either a project file or a root directory is required")
	}
	if cfg.Scale < 0 {
		return nil, errors.New("scale cannot be negative")
	}
	if cfg.Concurrency < 0 {
		return nil, errors.New("concurrency cannot be negative")
	}
	cfg.Entries = append([]string(nil), cfg.Entries...)
	return &cfg, nil
}
