package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/ir"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	After   string
	Before  string
	Limit   int
	Reverse bool
	Subject string // optional - filter to one node or edge
}

// LogEntry is one event in the log output.
type LogEntry struct {
	ID      ir.EventID      `json:"event_id"`
	Type    string          `json:"type"`
	Subject string          `json:"subject"`
	Time    string          `json:"timestamp"`
	Event   json.RawMessage `json:"event,omitempty"`
}

// LogResult holds the log command output.
type LogResult struct {
	Events []LogEntry `json:"events"`
	Count  int        `json:"count"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List events from the graph's event log",
		Long: `List events in id order, which is the order they were recorded.

--after and --before are exclusive event id bounds. With --reverse the
newest events come first and --limit keeps the newest.

Examples:
  loam log --db ./loam.db
  loam log --limit 10 --reverse
  loam log --subject alice --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.After, "after", "", "only events after this event id")
	cmd.Flags().StringVar(&opts.Before, "before", "", "only events before this event id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 for all)")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "newest first")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "only events for this node or edge id")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	r := event.Range{
		After:   ir.EventID(opts.After),
		Before:  ir.EventID(opts.Before),
		Reverse: opts.Reverse,
	}
	// The subject filter runs after the read, so the limit has to as well.
	if opts.Subject == "" {
		r.Limit = opts.Limit
	}
	events, err := s.engine.Events(ctx, r)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := LogResult{Events: []LogEntry{}}
	for _, e := range events {
		if opts.Subject != "" && event.Subject(e) != opts.Subject {
			continue
		}
		if opts.Subject != "" && opts.Limit > 0 && len(result.Events) == opts.Limit {
			break
		}
		entry := LogEntry{
			ID:      e.EventID(),
			Type:    string(e.Type()),
			Subject: event.Subject(e),
			Time:    event.FormatTime(e.Timestamp()),
		}
		if formatter.JSON() {
			raw, err := event.Marshal(e)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to encode event", err)
			}
			entry.Event = raw
		}
		result.Events = append(result.Events, entry)
	}
	result.Count = len(result.Events)

	if formatter.JSON() {
		return formatter.Respond(CLIResponse{Status: "ok", Graph: opts.Config().Graph, Data: result})
	}

	w := cmd.OutOrStdout()
	if result.Count == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}
	for _, entry := range result.Events {
		fmt.Fprintf(w, "%s  %-24s %-20s %s\n", entry.ID, entry.Type, entry.Subject, entry.Time)
	}
	return nil
}
