package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/query"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Stored string
	View   string
	File   string
	Params []string
}

// ItemView is the output form of a node or edge.
type ItemView struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Source     string         `json:"source,omitempty"`
	Target     string         `json:"target,omitempty"`
	Properties map[string]any `json:"properties"`
}

// QueryOutput holds query results.
type QueryOutput struct {
	Count int        `json:"count"`
	Nodes []ItemView `json:"nodes,omitempty"`
	Edges []ItemView `json:"edges,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Run a query against the graph",
		Long: `Run a stored query, a view, or a query from a JSON file.

Exit codes:
  0 - Query ran
  1 - Query failed (unknown query, wrong context, parse failure)
  2 - Command error

Examples:
  loam query --stored q:tasks-by-priority --param priority=high
  loam query --view sys:view:recent
  loam query --file open-tasks.json --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Stored, "stored", "", "id of a stored query definition")
	cmd.Flags().StringVar(&opts.View, "view", "", "id of a view definition")
	cmd.Flags().StringVar(&opts.File, "file", "", "path of a JSON query (- for stdin)")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "query parameter as name=value")
	cmd.MarkFlagsMutuallyExclusive("stored", "view", "file")

	return cmd
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sources := 0
	for _, set := range []bool{opts.Stored != "", opts.View != "", opts.File != "", len(args) > 0} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return NewExitError(ExitCommandError, "exactly one of --stored, --view, --file or a query text is required")
	}

	params, err := parseProperties(opts.Params)
	if err != nil {
		return err
	}

	var q query.Query
	switch {
	case opts.File != "":
		q, err = readQueryFile(opts.File, cmd.InOrStdin())
		if err != nil {
			return queryFailed(formatter, err)
		}
	case len(args) > 0:
		q, err = query.ParseText(args[0])
		if err != nil {
			return queryFailed(formatter, err)
		}
	}

	s, err := openSession(cmd.Context(), opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var res query.Result
	switch {
	case opts.Stored != "":
		res, err = s.engine.ExecuteStored(ir.NodeID(opts.Stored), params)
	case opts.View != "":
		res, err = s.engine.ExecuteView(ir.NodeID(opts.View), params)
	default:
		res, err = s.engine.Query(q)
	}
	if err != nil {
		return queryFailed(formatter, err)
	}

	out, err := queryOutput(res)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode results", err)
	}
	if formatter.JSON() {
		return formatter.Respond(CLIResponse{Status: "ok", Graph: opts.Config().Graph, Data: out})
	}
	return outputQueryText(cmd.OutOrStdout(), out)
}

func readQueryFile(path string, stdin io.Reader) (query.Query, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return query.Query{}, err
	}
	return query.Unmarshal(data)
}

func queryFailed(formatter *OutputFormatter, err error) error {
	code := ir.CodeOf(err)
	_ = formatter.Error(ErrCodeQueryFailed, err.Error(), string(code))
	if code == "" {
		return WrapExitError(ExitCommandError, "query failed", err)
	}
	return WrapExitError(ExitFailure, "query failed", err)
}

func queryOutput(res query.Result) (QueryOutput, error) {
	out := QueryOutput{Count: res.Len()}
	for _, n := range res.Nodes {
		v, err := nodeView(n)
		if err != nil {
			return QueryOutput{}, err
		}
		out.Nodes = append(out.Nodes, v)
	}
	for _, e := range res.Edges {
		v, err := edgeView(e)
		if err != nil {
			return QueryOutput{}, err
		}
		out.Edges = append(out.Edges, v)
	}
	return out, nil
}

func nodeView(n graph.Node) (ItemView, error) {
	props, err := ir.EncodeProperties(n.Properties)
	if err != nil {
		return ItemView{}, fmt.Errorf("node %s: %w", n.ID, err)
	}
	return ItemView{ID: string(n.ID), Type: string(n.Type), Properties: props}, nil
}

func edgeView(e graph.Edge) (ItemView, error) {
	props, err := ir.EncodeProperties(e.Properties)
	if err != nil {
		return ItemView{}, fmt.Errorf("edge %s: %w", e.ID, err)
	}
	return ItemView{
		ID:         string(e.ID),
		Type:       string(e.Type),
		Source:     string(e.Source),
		Target:     string(e.Target),
		Properties: props,
	}, nil
}

// formatProps renders properties as canonical JSON for text output.
func formatProps(props map[string]any) string {
	data, err := ir.MarshalCanonical(props)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func outputQueryText(w io.Writer, out QueryOutput) error {
	for _, n := range out.Nodes {
		fmt.Fprintf(w, "%s\t%s\t%s\n", n.ID, n.Type, formatProps(n.Properties))
	}
	for _, e := range out.Edges {
		fmt.Fprintf(w, "%s\t%s\t%s -> %s\t%s\n", e.ID, e.Type, e.Source, e.Target, formatProps(e.Properties))
	}
	noun := "result"
	if out.Count != 1 {
		noun = "results"
	}
	fmt.Fprintln(w, strings.TrimSpace(fmt.Sprintf("%d %s", out.Count, noun)))
	return nil
}
