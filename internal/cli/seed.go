package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/lazyset/internal/store"
)

// SeedResult reports the records a seed inserted.
type SeedResult struct {
	Database string            `json:"database"`
	Inserted int               `json:"inserted"`
	Refs     map[string]string `json:"refs,omitempty"` // ref label -> Type(key)
}

func (r SeedResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "✓ Inserted %d record(s) into %s\n", r.Inserted, r.Database)
	refs := make([]string, 0, len(r.Refs))
	for ref := range r.Refs {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		fmt.Fprintf(w, "  %s = %s\n", ref, r.Refs[ref])
	}
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "seed <models-dir> <fixtures.yaml>",
		Short: "Create tables and load fixture records",
		Long: `Create the tables and views for the models, then insert the records
of a fixtures file in order. A field value {ref: label} is replaced by
the key of the earlier record with that label.

Examples:
  lazyset seed ./models ./fixtures.yaml
  lazyset seed ./models ./fixtures.yaml --db ./demo.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), rootOpts, args[0], args[1], dbPath, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default from config)")

	return cmd
}

func runSeed(ctx context.Context, opts *RootOptions, modelsDir, fixturesPath, dbPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts, cmd)

	cfg, err := opts.config()
	if err != nil {
		return err
	}

	loaded, err := LoadModels(modelsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	f, err := os.Open(fixturesPath)
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("fixtures file: %v", err)})
	}
	defer f.Close()

	fixtures, err := store.DecodeFixtures(f)
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeFixtures, Message: err.Error()})
	}

	st, err := openStore(cfg, dbPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer st.Close()

	if err := st.EnsureEntities(ctx, loaded.Registry); err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error()})
	}
	records, err := st.LoadFixtures(ctx, loaded.Registry, fixtures)
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeFixtures, Message: err.Error()})
	}

	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	result := SeedResult{Database: dbPath, Inserted: len(fixtures), Refs: make(map[string]string, len(records))}
	for ref, rec := range records {
		result.Refs[ref] = rec.String()
	}

	opts.logger().Info("seeded database", "database", dbPath, "records", len(fixtures))
	return formatter.Success(result)
}
