package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rome/tools-sub007/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const longHelp = `Resolves the given entry points, builds their dependency graph and prints
the order in which the modules execute, along with any resolution, export or
initialization-order problems found.`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		cfg      app.Config
		parsed   *app.Config
		exitNow  bool
		parseErr error
	)

	cmd := &cobra.Command{
		Use:           "bundler [flags] ENTRY...",
		Short:         "Build and validate a module dependency graph",
		Long:          longHelp,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				slog.Debug("No entry points provided, printing usage and exiting.")
				exitNow = true
				return cmd.Usage()
			}
			cfg.Entries = args
			parsed, parseErr = finish(cfg)
			return parseErr
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	flags := cmd.Flags()
	flags.StringVarP(&cfg.ProjectFile, "project", "p", "", "Path to a project.hcl or project.yaml file.")
	flags.StringVar(&cfg.Root, "root", "", "Project root used when no project file is given. Defaults to the working directory.")
	flags.StringVar(&cfg.Platform, "platform", "", "Target platform used for platform-specific files.")
	flags.IntVar(&cfg.Scale, "scale", 0, "Preferred asset scale. 0 uses the project default.")
	flags.BoolVar(&cfg.Mocks, "mocks", false, "Prefer files from the mocks directory.")
	flags.BoolVar(&cfg.Validate, "validate", false, "Check imports and initialization order of every entry point.")
	flags.BoolVar(&cfg.AllowMissing, "allow-missing", false, "Skip entry points that do not exist.")
	flags.BoolVarP(&cfg.Watch, "watch", "w", false, "Rebuild whenever a file under the project root changes.")
	flags.StringVar(&cfg.FeedURL, "feed-url", "", "Socket.IO server that receives graph statistics after each build.")
	flags.IntVar(&cfg.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	flags.IntVar(&cfg.Concurrency, "concurrency", 0, "Number of files analyzed concurrently. 0 uses the project setting.")
	flags.IntVar(&cfg.MaxDiagnostics, "max-diagnostics", 0, "Stop collecting diagnostics after this many. 0 uses the project setting.")
	flags.StringVar(&cfg.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	ran := false
	cmd.PreRun = func(*cobra.Command, []string) { ran = true }

	if err := cmd.Execute(); err != nil {
		if parseErr != nil {
			return nil, false, parseErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if !ran || exitNow {
		// Help was printed.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", parsed)
	return parsed, false, nil
}

// finish validates flag values and builds the application config.
func finish(cfg app.Config) (*app.Config, error) {
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if cfg.ProjectFile == "" && cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Root != "" {
		root, err := filepath.Abs(cfg.Root)
		if err != nil {
			return nil, &ExitError{Code: 2, Message: fmt.Sprintf("invalid root: %v", err)}
		}
		cfg.Root = root
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, nil
}
