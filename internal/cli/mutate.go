package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

// MutationResult reports a successful mutation.
type MutationResult struct {
	Op        string     `json:"op"`
	ID        string     `json:"id"`
	Events    int        `json:"events"`
	LastEvent ir.EventID `json:"last_event,omitempty"`
}

func (r MutationResult) String() string {
	return fmt.Sprintf("%s %s: %d event(s)", r.Op, r.ID, r.Events)
}

// mutationOptions holds the flags shared by node and edge mutations.
type mutationOptions struct {
	*RootOptions
	ID     string
	Type   string
	Source string
	Target string
	Props  []string
	Unset  []string
}

// NewNodeCommand creates the node command group.
func NewNodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Add, update and remove nodes",
	}

	add := &mutationOptions{RootOptions: rootOpts}
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a node",
		Example: `  loam node add --type person --id alice --prop name=Alice --prop age=30
  loam node add --type note --prop 'due={"$date":"2025-01-31"}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, rootOpts, "add_node", func(ctx context.Context, s *session) (string, graph.Result, error) {
				props, err := parseProperties(add.Props)
				if err != nil {
					return "", graph.Result{}, err
				}
				res, err := s.engine.AddNode(ctx, graph.Node{ID: ir.NodeID(add.ID), Type: ir.TypeID(add.Type), Properties: props})
				return createdID(res, add.ID), res, err
			})
		},
	}
	addCmd.Flags().StringVar(&add.ID, "id", "", "node id (generated when empty)")
	addCmd.Flags().StringVar(&add.Type, "type", "", "node type (required)")
	addCmd.Flags().StringArrayVar(&add.Props, "prop", nil, "property as key=value; JSON values are decoded")
	_ = addCmd.MarkFlagRequired("type")

	update := &mutationOptions{RootOptions: rootOpts}
	updateCmd := &cobra.Command{
		Use:           "update <id>",
		Short:         "Set or unset node properties",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, rootOpts, "update_node", func(ctx context.Context, s *session) (string, graph.Result, error) {
				set, err := parseProperties(update.Props)
				if err != nil {
					return "", graph.Result{}, err
				}
				res, err := s.engine.UpdateNode(ctx, ir.NodeID(args[0]), func(n graph.Node) graph.Node {
					if update.Type != "" {
						n.Type = ir.TypeID(update.Type)
					}
					n.Properties = event.Merge(n.Properties, changesOf(set), update.Unset)
					return n
				})
				return args[0], res, err
			})
		},
	}
	updateCmd.Flags().StringVar(&update.Type, "type", "", "change the node type")
	updateCmd.Flags().StringArrayVar(&update.Props, "prop", nil, "property to set as key=value")
	updateCmd.Flags().StringArrayVar(&update.Unset, "unset", nil, "property to remove")

	rmCmd := &cobra.Command{
		Use:           "rm <id>",
		Short:         "Remove a node and every edge touching it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, rootOpts, "remove_node", func(ctx context.Context, s *session) (string, graph.Result, error) {
				res, err := s.engine.RemoveNode(ctx, ir.NodeID(args[0]))
				return args[0], res, err
			})
		},
	}

	cmd.AddCommand(addCmd, updateCmd, rmCmd)
	return cmd
}

// NewEdgeCommand creates the edge command group.
func NewEdgeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Add and remove edges",
	}

	add := &mutationOptions{RootOptions: rootOpts}
	addCmd := &cobra.Command{
		Use:           "add",
		Short:         "Add an edge",
		Example:       `  loam edge add --type knows --from alice --to bob --prop since=2020`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, rootOpts, "add_edge", func(ctx context.Context, s *session) (string, graph.Result, error) {
				props, err := parseProperties(add.Props)
				if err != nil {
					return "", graph.Result{}, err
				}
				res, err := s.engine.AddEdge(ctx, graph.Edge{
					ID:         ir.EdgeID(add.ID),
					Type:       ir.TypeID(add.Type),
					Source:     ir.NodeID(add.Source),
					Target:     ir.NodeID(add.Target),
					Properties: props,
				})
				return createdID(res, add.ID), res, err
			})
		},
	}
	addCmd.Flags().StringVar(&add.ID, "id", "", "edge id (generated when empty)")
	addCmd.Flags().StringVar(&add.Type, "type", "", "edge type (required)")
	addCmd.Flags().StringVar(&add.Source, "from", "", "source node id (required)")
	addCmd.Flags().StringVar(&add.Target, "to", "", "target node id (required)")
	addCmd.Flags().StringArrayVar(&add.Props, "prop", nil, "property as key=value")
	_ = addCmd.MarkFlagRequired("type")
	_ = addCmd.MarkFlagRequired("from")
	_ = addCmd.MarkFlagRequired("to")

	rmCmd := &cobra.Command{
		Use:           "rm <id>",
		Short:         "Remove an edge",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, rootOpts, "remove_edge", func(ctx context.Context, s *session) (string, graph.Result, error) {
				res, err := s.engine.RemoveEdge(ctx, ir.EdgeID(args[0]))
				return args[0], res, err
			})
		},
	}

	cmd.AddCommand(addCmd, rmCmd)
	return cmd
}

type mutationFunc func(ctx context.Context, s *session) (id string, res graph.Result, err error)

// runMutation opens a session, applies fn and reports the outcome. Domain
// errors such as validation failures exit with ExitFailure.
func runMutation(cmd *cobra.Command, opts *RootOptions, op string, fn mutationFunc) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	id, res, err := fn(ctx, s)
	if err != nil {
		code := ir.CodeOf(err)
		if code == "" {
			return WrapExitError(ExitCommandError, op+" failed", err)
		}
		_ = formatter.Error(ErrCodeMutation, err.Error(), string(code))
		return WrapExitError(ExitFailure, op+" failed", err)
	}

	result := MutationResult{Op: op, ID: id, Events: len(res.Events)}
	if len(res.Events) > 0 {
		result.LastEvent = res.Events[len(res.Events)-1].EventID()
	}
	return formatter.Success(result)
}

// createdID returns the id of the entity a create produced, which differs
// from the requested id when that was empty.
func createdID(res graph.Result, requested string) string {
	if len(res.Events) == 0 {
		return requested
	}
	switch e := res.Events[0].(type) {
	case event.NodeCreated:
		return string(e.NodeID)
	case event.EdgeCreated:
		return string(e.EdgeID)
	}
	return requested
}

// parseProperties parses key=value pairs. A value that is valid JSON is
// decoded, including tagged values such as {"$instant": "..."}; anything
// else is text.
func parseProperties(pairs []string) (ir.PropertyMap, error) {
	props := make(ir.PropertyMap, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid property %q: want key=value", pair))
		}
		props[key] = parseValue(raw)
	}
	return props, nil
}

func parseValue(raw string) ir.Value {
	if !json.Valid([]byte(raw)) {
		return ir.Text(raw)
	}
	tree, err := ir.DecodeJSON([]byte(raw))
	if err != nil {
		return ir.Text(raw)
	}
	v, err := ir.DecodeValue(tree)
	if err != nil {
		return ir.Text(raw)
	}
	return v
}

func changesOf(props ir.PropertyMap) map[string]event.PropertyChange {
	out := make(map[string]event.PropertyChange, len(props))
	for k, v := range props {
		out[k] = event.PropertyChange{New: v}
	}
	return out
}
