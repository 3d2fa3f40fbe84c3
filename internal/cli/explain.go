package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lazyset/internal/collection"
	"github.com/roach88/lazyset/internal/queryir"
	"github.com/roach88/lazyset/internal/querysql"
)

// ExplainResult is the SQL a collection would run.
type ExplainResult struct {
	Type     string   `json:"type"`
	Shape    string   `json:"shape"`
	Select   string   `json:"select"`
	Exists   string   `json:"exists"`
	Args     []any    `json:"args"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r ExplainResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "%s collection of %s\n", r.Shape, r.Type)
	fmt.Fprintf(w, "  select: %s\n", r.Select)
	fmt.Fprintf(w, "  exists: %s\n", r.Exists)
	fmt.Fprintf(w, "  args:   %v\n", r.Args)
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		models string
		coll   collectionFlags
		cand   candidateFlags
	)

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the SQL a collection runs",
		Long: `Print the materialization query of a collection and the existence
query a membership check for --key would issue. No database is opened.

Examples:
  lazyset explain --type ObjectA --filter "tag == x" --key 1
  lazyset explain --type ObjectA --exclude "name == a" --group-by tag --aggregate COUNT:*:n --key 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, models, &coll, &cand, cmd)
		},
	}

	coll.register(cmd)
	cand.register(cmd)
	cmd.Flags().StringVar(&models, "models", "", "models directory (default from config)")

	return cmd
}

func runExplain(opts *RootOptions, modelsDir string, coll *collectionFlags, cand *candidateFlags, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := opts.config()
	if err != nil {
		return err
	}
	if modelsDir == "" {
		modelsDir = cfg.Models
	}
	if cand.key == "" {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeInvalidCandidate, Message: "--key is required"})
	}

	desc, err := coll.descriptor()
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeInvalidCollection, Message: err.Error()})
	}

	loaded, err := LoadModels(modelsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	c, err := collection.New(loaded.Registry, nil, desc, collection.WithLogger(opts.logger()))
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeInvalidCollection, Message: err.Error()})
	}

	rec, err := cand.record(loaded.Registry, desc.Type)
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeInvalidCandidate, Message: err.Error()})
	}

	selectSQL, _, err := querysql.NewSQLCompiler().Compile(c.Select())
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeInvalidCollection, Message: err.Error()})
	}
	existsSQL, args, err := c.Explain(rec.Key)
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeInvalidCollection, Message: err.Error()})
	}

	result := ExplainResult{
		Type:   desc.Type,
		Shape:  c.Shape().String(),
		Select: selectSQL,
		Exists: existsSQL,
		Args:   args,
	}
	result.Warnings = queryir.Validate(c.ExistenceQuery()).Warnings
	return formatter.Success(result)
}
