package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/schema"
	"github.com/roach88/loam/internal/timetravel"
)

// AtOptions holds flags for the at command.
type AtOptions struct {
	*RootOptions
	Time  string
	Event string
	Node  string
	List  bool
}

// AtResult describes the graph at a point in its history.
type AtResult struct {
	Target   string     `json:"target"`
	Nodes    int        `json:"nodes"`
	Edges    int        `json:"edges"`
	Modified string     `json:"modified,omitempty"`
	Node     *ItemView  `json:"node,omitempty"`
	Items    []ItemView `json:"items,omitempty"`
}

// NewAtCommand creates the at command.
func NewAtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AtOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "at",
		Short: "Show the graph as it was at a time or event",
		Long: `Rebuild the graph from its event log up to a point in history.

--time accepts RFC 3339 and includes every event recorded in that
millisecond. --event includes the named event and everything before it.

Examples:
  loam at --time 2025-01-31T09:00:00Z
  loam at --event 01943b1c-0000-7000-8000-000000000001 --node alice
  loam at --time 2025-01-31T09:00:00Z --list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAt(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Time, "time", "", "RFC 3339 instant")
	cmd.Flags().StringVar(&opts.Event, "event", "", "event id")
	cmd.Flags().StringVar(&opts.Node, "node", "", "show this node")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list every non-system node")
	cmd.MarkFlagsMutuallyExclusive("time", "event")
	cmd.MarkFlagsOneRequired("time", "event")

	return cmd
}

func runAt(opts *AtOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	var target timetravel.Target
	if opts.Time != "" {
		t, err := time.Parse(time.RFC3339Nano, opts.Time)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --time", err)
		}
		target = timetravel.AtTime(t)
	} else {
		target = timetravel.AtEvent(ir.EventID(opts.Event))
	}

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := s.engine.GraphAt(ctx, target)
	if err != nil {
		if code := ir.CodeOf(err); code != "" {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), string(code))
			return WrapExitError(ExitFailure, "time travel failed", err)
		}
		return WrapExitError(ExitCommandError, "time travel failed", err)
	}

	result, err := atResult(g, target, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode graph", err)
	}
	if formatter.JSON() {
		return formatter.Respond(CLIResponse{Status: "ok", Graph: opts.Config().Graph, Data: result})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Graph at %s\n", result.Target)
	fmt.Fprintf(w, "  Nodes: %d, Edges: %d\n", result.Nodes, result.Edges)
	if result.Modified != "" {
		fmt.Fprintf(w, "  Modified: %s\n", result.Modified)
	}
	if opts.Node != "" {
		if result.Node == nil {
			fmt.Fprintf(w, "  %s: absent\n", opts.Node)
		} else {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", result.Node.ID, result.Node.Type, formatProps(result.Node.Properties))
		}
	}
	for _, item := range result.Items {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", item.ID, item.Type, formatProps(item.Properties))
	}
	return nil
}

func atResult(g *graph.Graph, target timetravel.Target, opts *AtOptions) (AtResult, error) {
	result := AtResult{
		Target: target.String(),
		Nodes:  g.NodeCount(),
		Edges:  g.EdgeCount(),
	}
	if m := g.Metadata().Modified; !m.IsZero() {
		result.Modified = event.FormatTime(m)
	}
	if opts.Node != "" {
		if n, ok := g.Node(ir.NodeID(opts.Node)); ok {
			v, err := nodeView(n)
			if err != nil {
				return AtResult{}, err
			}
			result.Node = &v
		}
	}
	if opts.List {
		for _, n := range g.Nodes() {
			if schema.IsSystem(n.ID) {
				continue
			}
			v, err := nodeView(n)
			if err != nil {
				return AtResult{}, err
			}
			result.Items = append(result.Items, v)
		}
	}
	return result, nil
}
