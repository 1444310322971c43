package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/viant/afs"

	"github.com/rome/tools-sub007/internal/analysis"
	"github.com/rome/tools-sub007/internal/config"
	"github.com/rome/tools-sub007/internal/ctxlog"
	"github.com/rome/tools-sub007/internal/depgraph"
	"github.com/rome/tools-sub007/internal/resolver"
	"github.com/rome/tools-sub007/internal/vfs"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	ctx      context.Context
	config   *Config
	project  *config.Project
	fs       *vfs.Disk
	resolver *resolver.Resolver
	projects *resolver.Projects
	graph    *depgraph.Graph

	httpServer *http.Server
}

// NewApp wires a ready-to-run application. loader reads cfg.ProjectFile and
// may be nil when no project file is given.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	project, err := loadProject(ctx, cfg, loader)
	if err != nil {
		return nil, err
	}
	if cfg.Concurrency > 0 {
		project.Concurrency = cfg.Concurrency
	}
	if cfg.MaxDiagnostics > 0 {
		project.MaxDiagnostics = cfg.MaxDiagnostics
	}
	logger.Debug("Project configuration loaded.", "project", project.Name, "root", project.Root)

	fsys := afs.New()
	disk, err := vfs.NewDisk(fsys, vfs.DefaultManifestCacheSize)
	if err != nil {
		return nil, err
	}
	projects := resolver.NewProjects()
	res, err := resolver.New(resolver.Options{
		FS:       disk,
		Project:  project,
		Fetcher:  resolver.NewRemoteFetcher(fsys, disk, project.VendorDir),
		Registry: projects,
	})
	if err != nil {
		return nil, err
	}
	graph, err := depgraph.New(depgraph.Options{
		Resolver: res,
		Analyzer: analysis.NewScanner(disk),
		Project:  project,
		Platform: cfg.Platform,
		Scale:    cfg.Scale,
		Mocks:    cfg.Mocks,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   cfg,
		project:  project,
		fs:       disk,
		resolver: res,
		projects: projects,
		graph:    graph,
	}, nil
}

func loadProject(ctx context.Context, cfg *Config, loader config.Loader) (*config.Project, error) {
	if cfg.ProjectFile == "" {
		return config.Default(cfg.Root), nil
	}
	if loader == nil {
		return nil, fmt.Errorf("no loader available for %s", cfg.ProjectFile)
	}
	project, err := loader.Load(ctx, cfg.ProjectFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return project, nil
}

// Project returns the loaded project configuration.
func (a *App) Project() *config.Project {
	return a.project
}

// Graph returns the application's dependency graph. This is primarily for testing.
func (a *App) Graph() *depgraph.Graph {
	return a.graph
}
