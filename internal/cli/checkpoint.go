package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loam/internal/engine"
	"github.com/roach88/loam/internal/event"
)

// NewCheckpointCommand creates the checkpoint command.
func NewCheckpointCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Snapshot the current graph",
		Long: `Write a snapshot of the current graph to the configured snapshot
backend. Later commands load it and replay only the events after it.

Examples:
  loam checkpoint --db ./loam.db
  LOAM_SNAPSHOT_BACKEND=badger loam checkpoint`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckpoint(rootOpts, cmd)
		},
	}

	return cmd
}

func runCheckpoint(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	meta, err := s.engine.Checkpoint(ctx)
	if errors.Is(err, engine.ErrNoSnapshotStore) {
		_ = formatter.Error(ErrCodeNoSnapshotCfg, err.Error(), nil)
		return WrapExitError(ExitCommandError, "checkpoint failed", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "checkpoint failed", err)
	}

	if formatter.JSON() {
		return formatter.Respond(CLIResponse{Status: "ok", Graph: opts.Config().Graph, Data: meta})
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Checkpoint written (%s)\n", opts.Config().SnapshotBackend)
	fmt.Fprintf(w, "  Event: %s\n", meta.EventID)
	fmt.Fprintf(w, "  Nodes: %d, Edges: %d\n", meta.Nodes, meta.Edges)
	fmt.Fprintf(w, "  Size: %d bytes\n", meta.Size)
	if opts.Verbose {
		fmt.Fprintf(w, "  Checksum: %s\n", meta.Checksum)
		fmt.Fprintf(w, "  Saved: %s\n", event.FormatTime(meta.SavedAt))
	}
	return nil
}
