package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/loam/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string // overrides LOAM_DB
	Graph   string // overrides LOAM_GRAPH

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Config returns the configuration from the environment with flag
// overrides applied. It is resolved once.
func (o *RootOptions) Config() *config.Config {
	if o.cfg == nil {
		o.cfg = config.FromArgs(o.DB, o.Graph)
	}
	return o.cfg
}

// NewRootCommand creates the root command for the loam CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "loam",
		Short: "loam - an event-sourced typed graph",
		Long: `A typed property graph whose every change is an event.

State lives in a SQLite event log. Commands rebuild the graph from the
latest snapshot plus the events after it.

Environment:
  LOAM_DB                path of the event database (default loam.db)
  LOAM_GRAPH             graph id (default "default")
  LOAM_LOG_LEVEL         debug, info, warn or error (default warn)
  LOAM_SNAPSHOT_BACKEND  sqlite or badger (default sqlite)
  LOAM_BADGER_DIR        badger directory (default <db>.snapshots)
  LOAM_CHECKPOINT_EVERY  events between automatic checkpoints (default 1000)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := opts.Config().Validate(); err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite event database (env LOAM_DB)")
	cmd.PersistentFlags().StringVar(&opts.Graph, "graph", "", "graph id (env LOAM_GRAPH)")

	cmd.AddCommand(NewNodeCommand(opts))
	cmd.AddCommand(NewEdgeCommand(opts))
	cmd.AddCommand(NewChildCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewAtCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewCheckpointCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// logLevel returns the level for the session logger: debug when verbose,
// the configured level otherwise.
func (o *RootOptions) logLevel() slog.Level {
	if o.Verbose {
		return slog.LevelDebug
	}
	return o.Config().LogLevel
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
