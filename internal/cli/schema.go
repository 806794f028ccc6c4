package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loam/internal/schema"
)

// SchemaLoadResult reports a type definition load.
type SchemaLoadResult struct {
	NodeTypes []string `json:"node_types"`
	EdgeTypes []string `json:"edge_types"`
	Events    int      `json:"events"`
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage type definitions",
	}

	load := &cobra.Command{
		Use:   "load <types-dir>",
		Short: "Load CUE type definitions into the graph",
		Long: `Compile the CUE package in a directory and store every node and
edge type as a definition node. Existing definitions with the same id are
replaced.

Exit codes:
  0 - Types loaded
  1 - Type definitions invalid
  2 - Command error`,
		Example:       `  loam schema load ./types`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaLoad(rootOpts, args[0], cmd)
		},
	}

	cmd.AddCommand(load)
	return cmd
}

func runSchemaLoad(opts *RootOptions, dir string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	ts, err := schema.LoadTypesDir(dir)
	if err != nil {
		_ = formatter.Error(ErrCodeTypesLoad, err.Error(), typeErrorOf(err))
		return WrapExitError(ExitFailure, "failed to load types", err)
	}

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.DefineTypes(ctx, ts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to define types", err)
	}

	result := SchemaLoadResult{NodeTypes: []string{}, EdgeTypes: []string{}, Events: len(res.Events)}
	for _, def := range ts.NodeTypes {
		result.NodeTypes = append(result.NodeTypes, string(def.ID))
	}
	for _, def := range ts.EdgeTypes {
		result.EdgeTypes = append(result.EdgeTypes, string(def.ID))
	}

	if formatter.JSON() {
		return formatter.Respond(CLIResponse{Status: "ok", Graph: opts.Config().Graph, Data: result})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Loaded %d node type(s) and %d edge type(s) from %s (%d event(s))\n",
		len(result.NodeTypes), len(result.EdgeTypes), dir, result.Events)
	return nil
}
