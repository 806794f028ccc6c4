package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loam/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	TypesDir string
}

// TypeError is a CUE type definition that failed to compile.
type TypeError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                  `json:"valid"`
	Types      int                   `json:"types,omitempty"`
	Violations []schema.Violation    `json:"violations,omitempty"`
	Errors     []TypeError           `json:"errors,omitempty"`
	Warnings   []schema.CycleWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the graph against its type definitions",
		Long: `Validate every node and edge of the graph against the type
definitions stored in it. Cycles among ordered children are reported
as warnings and do not fail validation.

With --types, compile a directory of CUE type definitions instead and
report compile errors without touching the database.

Exit codes:
  0 - Valid
  1 - Violations or type compile errors found
  2 - Command error

Examples:
  loam validate --db ./loam.db
  loam validate --types ./types`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.TypesDir != "" {
				return runValidateTypes(opts, cmd)
			}
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.TypesDir, "types", "", "compile CUE types in this directory instead of validating the graph")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openSession(cmd.Context(), opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	violations := s.engine.Validate()
	warnings := s.engine.ChildCycles()
	formatter.VerboseLog("Validated %d node(s) and %d edge(s)",
		s.engine.Graph().NodeCount(), s.engine.Graph().EdgeCount())

	if !formatter.JSON() {
		for _, w := range warnings {
			fmt.Fprintf(formatter.Writer, "⚠ %s\n", w.Message)
		}
	}

	if len(violations) == 0 {
		return outputValidateSuccess(formatter, "✓ Graph conforms to its types",
			ValidationResult{Valid: true, Warnings: warnings})
	}

	result := ValidationResult{Valid: false, Violations: violations, Warnings: warnings}
	if formatter.JSON() {
		first := violations[0]
		msg := fmt.Sprintf("%s %s", first.Type, subjectOfViolation(first))
		if len(first.Errors) > 0 {
			msg = first.Errors[0].Message
		}
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Graph:  opts.Config().Graph,
			Data:   result,
			Error:  &CLIError{Code: ErrCodeInvalid, Message: msg},
		}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, v := range violations {
			fmt.Fprintf(w, "%s (%s)\n", subjectOfViolation(v), v.Type)
			for _, e := range v.Errors {
				fmt.Fprintf(w, "  %s: %s\n", e.Code, e.Message)
			}
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d violation(s)", len(violations)))
}

func subjectOfViolation(v schema.Violation) string {
	if v.EdgeID != "" {
		return "edge " + string(v.EdgeID)
	}
	return "node " + string(v.NodeID)
}

func runValidateTypes(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ts, err := schema.LoadTypesDir(opts.TypesDir)
	if err != nil {
		te := typeErrorOf(err)
		if formatter.JSON() {
			if err := formatter.Respond(CLIResponse{
				Status: "error",
				Data:   ValidationResult{Valid: false, Errors: []TypeError{te}},
				Error:  &CLIError{Code: ErrCodeTypesLoad, Message: te.Message},
			}); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Type definitions invalid")
			fmt.Fprintln(formatter.Writer)
			if te.Line > 0 {
				fmt.Fprintf(formatter.Writer, "%s:%d\n", te.File, te.Line)
			}
			fmt.Fprintf(formatter.Writer, "  %s\n", err)
		}
		return WrapExitError(ExitFailure, "type definitions invalid", err)
	}

	n := len(ts.NodeTypes) + len(ts.EdgeTypes)
	formatter.VerboseLog("Compiled %d node type(s) and %d edge type(s) from %s",
		len(ts.NodeTypes), len(ts.EdgeTypes), opts.TypesDir)
	return outputValidateSuccess(formatter,
		fmt.Sprintf("✓ %d type(s) valid", n),
		ValidationResult{Valid: true, Types: n})
}

func typeErrorOf(err error) TypeError {
	var cErr *schema.CompileError
	if errors.As(err, &cErr) {
		te := TypeError{Field: cErr.Field, Message: cErr.Message}
		if cErr.Pos.IsValid() {
			te.File = cErr.Pos.Filename()
			te.Line = cErr.Pos.Line()
		}
		return te
	}
	return TypeError{Message: err.Error()}
}

func outputValidateSuccess(formatter *OutputFormatter, text string, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, text)
	return nil
}
