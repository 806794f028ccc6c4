package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/schema"
)

// ChildView is one ordered child in list output.
type ChildView struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Position string `json:"position"`
}

// ChildList holds the ordered children of a parent.
type ChildList struct {
	Parent   string      `json:"parent"`
	Children []ChildView `json:"children"`
}

func (l ChildList) String() string {
	if len(l.Children) == 0 {
		return fmt.Sprintf("%s has no children", l.Parent)
	}
	var b strings.Builder
	for i, c := range l.Children {
		fmt.Fprintf(&b, "%d\t%s\t%s\t%s\n", i, c.ID, c.Type, c.Position)
	}
	fmt.Fprintf(&b, "%d child(ren)", len(l.Children))
	return b.String()
}

// NewChildCommand creates the child command group.
func NewChildCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "child",
		Short: "Order nodes under a parent",
		Long: `Link nodes as ordered children of a parent.

Positions are fractional keys, so inserting or moving a child never
rewrites its siblings.`,
	}

	var addIndex int
	addCmd := &cobra.Command{
		Use:   "add <parent> <child>",
		Short: "Link a child under a parent",
		Example: `  loam child add page b1
  loam child add page b0 --index 0`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, child := ir.NodeID(args[0]), ir.NodeID(args[1])
			return runMutation(cmd, rootOpts, "insert_child", func(ctx context.Context, s *session) (string, graph.Result, error) {
				var (
					res graph.Result
					err error
				)
				if addIndex < 0 {
					res, err = s.engine.AppendChild(ctx, parent, child)
				} else {
					res, err = s.engine.InsertChild(ctx, parent, child, addIndex)
				}
				return string(schema.ChildEdgeID(parent, child)), res, err
			})
		},
	}
	addCmd.Flags().IntVar(&addIndex, "index", -1, "position among siblings (appends when negative)")

	var mvIndex int
	mvCmd := &cobra.Command{
		Use:           "mv <parent> <child>",
		Short:         "Move a child to a new position",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, child := ir.NodeID(args[0]), ir.NodeID(args[1])
			return runMutation(cmd, rootOpts, "move_child", func(ctx context.Context, s *session) (string, graph.Result, error) {
				res, err := s.engine.MoveChild(ctx, parent, child, mvIndex)
				return string(schema.ChildEdgeID(parent, child)), res, err
			})
		},
	}
	mvCmd.Flags().IntVar(&mvIndex, "index", 0, "position among siblings (required)")
	_ = mvCmd.MarkFlagRequired("index")

	lsCmd := &cobra.Command{
		Use:           "ls <parent>",
		Short:         "List the children of a parent in order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			list := ChildList{Parent: args[0], Children: []ChildView{}}
			for _, c := range schema.Children(s.engine.Graph(), ir.NodeID(args[0])) {
				list.Children = append(list.Children, ChildView{
					ID:       string(c.Node.ID),
					Type:     string(c.Node.Type),
					Position: c.Position,
				})
			}
			return rootOpts.formatter(cmd).Success(list)
		},
	}

	cmd.AddCommand(addCmd, mvCmd, lsCmd)
	return cmd
}
