package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fsdlint/internal/config"
	"fsdlint/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// check flags
	outputFormat      string
	severityThreshold string
	watchMode         bool
	recordHistory     bool
	noHistory         bool

	// graph flags
	graphFormat string
	graphOut    string

	// trend flags
	trendLimit int
)

// rootCmd represents the base command. Running fsdlint with no
// subcommand behaves like `fsdlint check`.
var rootCmd = &cobra.Command{
	Use:   "fsdlint [source-root]",
	Short: "fsdlint checks feature-sliced frontend architecture rules",
	Long: `fsdlint statically checks the import graph of a TypeScript/JavaScript
codebase against a layered, feature-sliced architecture.

It never executes the analyzed code. Files are parsed, imports are
resolved to modules, modules are classified into layers and slices, and
the resulting graph is checked against the layer hierarchy:

  - imports must point from higher layers to lower ones
  - slices in the same layer must not import each other
  - external consumers must enter a slice through its public API

Run without arguments to lint the configured source root.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logging.Options{Debug: verbose}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runCheck,
}

// checkCmd lints the tree once (or continuously with --watch).
var checkCmd = &cobra.Command{
	Use:   "check [source-root]",
	Short: "Lint the source tree and report rule violations",
	Long: `Builds the project import graph and evaluates every rule family.

The positional argument overrides the configured source root. Exit code
is 0 for a clean run, 1 when violations at or above the severity
threshold were found, and 2 when the run itself failed (bad config,
unreadable root).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

// graphCmd exports the module graph.
var graphCmd = &cobra.Command{
	Use:   "graph [source-root]",
	Short: "Export the module graph as DOT or JSON",
	Long: `Builds the project graph and writes it out for visualization.

DOT output groups modules by layer (one cluster per layer) and
aggregates sliced layers to one node per slice; edges that violate a
rule are drawn in red. Pipe the result through Graphviz:

  fsdlint graph | dot -Tsvg -o architecture.svg`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

// initCmd writes a starter configuration.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default " + config.DefaultFileName + " to the working directory",
	Args:  cobra.NoArgs,
	RunE:  runInitConfig,
}

// trendCmd lists recorded runs.
var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show recent lint runs from the history store",
	Long: `Lists recorded runs, newest first, so violation counts can be compared
across time. Runs are recorded by "fsdlint check" when history is
enabled in the config or forced with --history.`,
	Args: cobra.NoArgs,
	RunE: runTrend,
}

// addCheckFlags registers the check flag set; the root command carries
// the same flags so a bare `fsdlint` accepts them too.
func addCheckFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&outputFormat, "format", "f", "", "Output format: text or json (default from config)")
	f.StringVar(&severityThreshold, "severity-threshold", "", "Fail at or above this severity: error or warning (default from config)")
	f.BoolVar(&watchMode, "watch", false, "Stay running and re-lint when source files change")
	f.BoolVar(&recordHistory, "history", false, "Record this run in the history store")
	f.BoolVar(&noHistory, "no-history", false, "Skip recording even when the config enables history")
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: "+config.DefaultFileName+")")

	addCheckFlags(rootCmd)
	addCheckFlags(checkCmd)

	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "dot", "Export format: dot or json")
	graphCmd.Flags().StringVarP(&graphOut, "out", "o", "", "Write to a file instead of stdout")

	trendCmd.Flags().IntVarP(&trendLimit, "limit", "n", 10, "Number of runs to show")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(trendCmd)
}

// ExitError carries a process exit code through cobra's error return.
// Code 1 means violations were found; code 2 means the run itself
// failed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// failf wraps a configuration or I/O problem as exit code 2.
func failf(format string, args ...any) error {
	return &ExitError{Code: 2, Err: fmt.Errorf(format, args...)}
}

// loadConfig resolves the effective configuration for one command run
// and attaches the file log sink when the config asks for one.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, &ExitError{Code: 2, Err: err}
	}
	if cfg.Logging.Debug {
		if err := logging.AddFileSink(cfg.Logging.Dir); err != nil {
			logging.L(logging.CategoryCLI).Warn("debug log sink unavailable", zap.Error(err))
		}
	}
	return cfg, nil
}

// runInitConfig writes a starter config. It refuses to overwrite an
// existing file; edit that one instead.
func runInitConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultFileName
	}
	if err := config.WriteDefault(path); err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		if exit.Err != nil {
			fmt.Fprintln(os.Stderr, "fsdlint:", exit.Err)
		}
		os.Exit(exit.Code)
	}
	// Flag parse errors and other cobra-level failures are usage
	// problems, not lint findings.
	fmt.Fprintln(os.Stderr, "fsdlint:", err)
	os.Exit(2)
}
