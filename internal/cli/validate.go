package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lazyset/internal/model"
	"github.com/roach88/lazyset/internal/store"
)

// EntitySummary describes one registered entity type.
type EntitySummary struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"` // "base", "proxy" or "child"
	Of     string   `json:"of,omitempty"`
	Class  string   `json:"class"`
	Source string   `json:"source"`
	Key    string   `json:"key"`
	Fields []string `json:"fields"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool            `json:"valid"`
	Files    int             `json:"files"`
	Entities []EntitySummary `json:"entities"`
	Schema   []string        `json:"schema,omitempty"`
}

func (r ValidationResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "✓ Models valid: %d entity type(s) in %d file(s)\n", len(r.Entities), r.Files)
	for _, e := range r.Entities {
		desc := e.Kind
		if e.Of != "" {
			desc += " of " + e.Of
		}
		fmt.Fprintf(w, "  %s (%s) source=%s key=%s fields=%v\n", e.Name, desc, e.Source, e.Key, e.Fields)
	}
	for _, stmt := range r.Schema {
		fmt.Fprintf(w, "  %s\n", stmt)
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var showSchema bool

	cmd := &cobra.Command{
		Use:   "validate <models-dir>",
		Short: "Validate entity models",
		Long: `Compile the CUE entity declarations in a directory and report the
registered types, or the first error with its code and position.

Exit codes:
  0 - Models are valid
  2 - Models are invalid or the directory cannot be read`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], showSchema, cmd)
		},
	}

	cmd.Flags().BoolVar(&showSchema, "schema", false, "include the generated DDL")

	return cmd
}

func runValidate(opts *RootOptions, modelsDir string, showSchema bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadModels(modelsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, modelsDir)

	result := ValidationResult{
		Valid:    true,
		Files:    loaded.FileCount,
		Entities: summarize(loaded.Registry),
	}
	if showSchema {
		stmts, err := store.SchemaStatements(loaded.Registry)
		if err != nil {
			return outputLoadError(formatter, &LoadError{Code: ErrCodeEntity, Message: err.Error()})
		}
		result.Schema = stmts
	}
	return formatter.Success(result)
}

// summarize lists the registered types by name.
func summarize(reg *model.Registry) []EntitySummary {
	names := reg.Names()
	out := make([]EntitySummary, 0, len(names))
	for _, name := range names {
		t, _ := reg.Lookup(name)
		class, _ := reg.Class(name)
		s := EntitySummary{
			Name:   name,
			Kind:   "base",
			Class:  class,
			Source: t.Source(),
			Key:    t.Key,
			Fields: t.Columns()[1:],
		}
		switch {
		case t.IsProxy():
			s.Kind, s.Of = "proxy", t.ProxyOf
		case t.IsChild():
			s.Kind, s.Of = "child", t.Parent
		}
		out = append(out, s)
	}
	return out
}
