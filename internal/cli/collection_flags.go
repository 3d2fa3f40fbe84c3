package cli

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lazyset/internal/collection"
	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/model"
)

// collectionFlags describe a collection on the command line, either with
// individual flags or with a YAML file holding a collection spec.
type collectionFlags struct {
	file       string
	spec       collection.Spec
	aggregates []string // FUNC:field:alias
}

func (f *collectionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.file, "collection", "", "YAML file with a collection spec (replaces the other collection flags)")
	fs.StringVar(&f.spec.Type, "type", "", "entity type of the collection")
	fs.StringVar(&f.spec.Filter, "filter", "", `filter expression, e.g. "tag == x AND name != a"`)
	fs.StringArrayVar(&f.spec.Exclude, "exclude", nil, "exclusion expression (repeatable)")
	fs.StringSliceVar(&f.spec.Values, "values", nil, "project onto these fields")
	fs.StringSliceVar(&f.spec.GroupBy, "group-by", nil, "group by these fields")
	fs.StringArrayVar(&f.aggregates, "aggregate", nil, "aggregate FUNC:field:alias, e.g. COUNT:*:n (repeatable)")
	fs.StringVar(&f.spec.Having, "having", "", "filter over group fields and aggregate aliases")
	fs.StringSliceVar(&f.spec.OrderBy, "order-by", nil, `order terms; prefix "-" for descending`)
	fs.IntVar(&f.spec.Limit, "limit", 0, "keep only the first N rows (0 = no limit)")
}

// descriptor builds the collection descriptor from the flags.
func (f *collectionFlags) descriptor() (collection.Descriptor, error) {
	spec := f.spec
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return collection.Descriptor{}, fmt.Errorf("failed to read collection file: %w", err)
		}
		spec = collection.Spec{}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&spec); err != nil {
			return collection.Descriptor{}, fmt.Errorf("failed to parse collection file: %w", err)
		}
	} else {
		for _, raw := range f.aggregates {
			parts := strings.Split(raw, ":")
			if len(parts) != 3 {
				return collection.Descriptor{}, fmt.Errorf("aggregate %q: want FUNC:field:alias", raw)
			}
			spec.Aggregates = append(spec.Aggregates, collection.AggregateSpec{Func: parts[0], Field: parts[1], Alias: parts[2]})
		}
	}
	return spec.Descriptor()
}

// candidateFlags name the candidate of a membership check.
type candidateFlags struct {
	typeName string
	key      string
}

func (f *candidateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.typeName, "candidate", "", "entity type of the candidate (default: the collection type)")
	cmd.Flags().StringVar(&f.key, "key", "", "primary key of the candidate; omit for an unsaved record")
}

// record builds the candidate. The key is parsed by the kind of the
// type's primary key.
func (f *candidateFlags) record(reg *model.Registry, defaultType string) (*model.Record, error) {
	typeName := f.typeName
	if typeName == "" {
		typeName = defaultType
	}
	rec := model.NewRecord(typeName, nil)
	if f.key == "" {
		return rec, nil
	}
	key, err := parseKey(reg, typeName, f.key)
	if err != nil {
		return nil, err
	}
	rec.Key = key
	return rec, nil
}

func parseKey(reg *model.Registry, typeName, raw string) (ir.IRValue, error) {
	t, ok := reg.Lookup(typeName)
	if !ok {
		return ir.IRString(raw), nil
	}
	switch t.KeyKind {
	case model.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("key %q: %s keys are integers", raw, typeName)
		}
		return ir.IRInt(n), nil
	case model.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %s keys are booleans", raw, typeName)
		}
		return ir.IRBool(b), nil
	default:
		return ir.IRString(raw), nil
	}
}
