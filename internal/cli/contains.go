package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/lazyset/internal/collection"
	"github.com/roach88/lazyset/internal/metrics"
)

// ContainsOptions holds flags for the contains command.
type ContainsOptions struct {
	*RootOptions
	Models     string
	DB         string
	Prefetch   bool
	Metrics    bool
	collection collectionFlags
	candidate  candidateFlags
}

// ContainsResult reports one membership check.
type ContainsResult struct {
	Collection string           `json:"collection"`
	Type       string           `json:"type"`
	Shape      string           `json:"shape"`
	Candidate  string           `json:"candidate"`
	Found      bool             `json:"found"`
	Path       string           `json:"path"`
	Queries    int64            `json:"queries"`
	Rows       *int             `json:"rows,omitempty"`
	Metrics    []metrics.Sample `json:"metrics,omitempty"`
}

func (r ContainsResult) writeText(w io.Writer) {
	if r.Rows != nil {
		fmt.Fprintf(w, "prefetched %d row(s)\n", *r.Rows)
	}
	fmt.Fprintf(w, "%s in %s collection of %s: %t\n", r.Candidate, r.Shape, r.Type, r.Found)
	fmt.Fprintf(w, "  path: %s\n", r.Path)
	fmt.Fprintf(w, "  queries: %d\n", r.Queries)
	writeMetrics(w, r.Metrics)
}

// NewContainsCommand creates the contains command.
func NewContainsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ContainsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "contains",
		Short: "Check whether a record belongs to a collection",
		Long: `Build a collection from flags and check whether a candidate record
belongs to it. The answer comes from the cheapest path available: a type
check, the result cache, or one existence query.

Examples:
  lazyset contains --type ObjectA --filter "tag == x" --key 1
  lazyset contains --type ObjectA --candidate ObjectB --key 1
  lazyset contains --type ObjectA --group-by tag --aggregate COUNT:*:n --key 3
  lazyset contains --collection tagged.yaml --key 2 --prefetch --metrics`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContains(cmd.Context(), opts, cmd)
		},
	}

	opts.collection.register(cmd)
	opts.candidate.register(cmd)
	cmd.Flags().StringVar(&opts.Models, "models", "", "models directory (default from config)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "database path (default from config)")
	cmd.Flags().BoolVar(&opts.Prefetch, "prefetch", false, "materialize the collection before the check")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report resolution metrics")

	return cmd
}

func runContains(ctx context.Context, opts *ContainsOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := opts.config()
	if err != nil {
		return err
	}
	modelsDir := opts.Models
	if modelsDir == "" {
		modelsDir = cfg.Models
	}

	desc, err := opts.collection.descriptor()
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeInvalidCollection, Message: err.Error()})
	}

	loaded, err := LoadModels(modelsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	reg := loaded.Registry

	candidate, err := opts.candidate.record(reg, desc.Type)
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeInvalidCandidate, Message: err.Error()})
	}

	st, err := openStore(cfg, opts.DB)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer st.Close()

	c, err := collection.New(reg, st, desc, collection.WithLogger(opts.logger()))
	if err != nil {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeInvalidCollection, Message: err.Error()})
	}

	result := ContainsResult{
		Collection: c.ID(),
		Type:       desc.Type,
		Shape:      c.Shape().String(),
		Candidate:  candidate.String(),
	}

	if opts.Prefetch {
		n, err := c.Len(ctx)
		if err != nil {
			return outputResolveError(formatter, err)
		}
		result.Rows = &n
		formatter.VerboseLog("Prefetched %d row(s) with %d statement(s)", n, st.QueryCount())
	}

	before := st.QueryCount()
	res, err := c.Resolve(ctx, candidate)
	if err != nil {
		return outputResolveError(formatter, err)
	}
	result.Found = res.Found
	result.Path = res.Path
	result.Queries = st.QueryCount() - before

	if opts.Metrics || cfg.Metrics.Report {
		samples, err := metrics.Snapshot(prometheus.DefaultGatherer)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
		result.Metrics = samples
	}

	return formatter.Success(result)
}

func outputResolveError(f *OutputFormatter, err error) error {
	if outErr := f.Error(resolveErrorCode(err), err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "membership check failed", err)
}
