package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/model"
)

// Fixture is one record to insert.
//
// A field value of the form {ref: label} is replaced by the key of the
// fixture labelled with that ref, which must appear earlier.
type Fixture struct {
	Ref    string         `yaml:"ref,omitempty"`
	Type   string         `yaml:"type"`
	Key    any            `yaml:"key,omitempty"`
	Fields map[string]any `yaml:"fields,omitempty"`
}

// FixtureFile is the top-level document of a fixtures YAML file.
type FixtureFile struct {
	Records []Fixture `yaml:"records"`
}

// DecodeFixtures parses a fixtures document, rejecting unknown fields.
func DecodeFixtures(r io.Reader) ([]Fixture, error) {
	var file FixtureFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	for i, f := range file.Records {
		if f.Type == "" {
			return nil, fmt.Errorf("records[%d]: type is required", i)
		}
	}
	return file.Records, nil
}

// LoadFixtures inserts fixtures in order and returns the labelled records.
func (s *Store) LoadFixtures(ctx context.Context, reg *model.Registry, fixtures []Fixture) (map[string]*model.Record, error) {
	labelled := make(map[string]*model.Record)

	for i, f := range fixtures {
		fields := make(ir.IRObject, len(f.Fields))
		for name, raw := range f.Fields {
			v, err := fixtureValue(raw, labelled)
			if err != nil {
				return nil, fmt.Errorf("records[%d].fields.%s: %w", i, name, err)
			}
			fields[name] = v
		}

		rec := model.NewRecord(f.Type, fields)
		if f.Key != nil {
			key, err := fixtureValue(f.Key, labelled)
			if err != nil {
				return nil, fmt.Errorf("records[%d].key: %w", i, err)
			}
			rec.Key = key
		}

		if err := s.Insert(ctx, reg, rec); err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}

		if f.Ref != "" {
			if _, dup := labelled[f.Ref]; dup {
				return nil, fmt.Errorf("records[%d]: duplicate ref %q", i, f.Ref)
			}
			labelled[f.Ref] = rec
		}
	}

	return labelled, nil
}

func fixtureValue(raw any, labelled map[string]*model.Record) (ir.IRValue, error) {
	if m, ok := raw.(map[string]any); ok && len(m) == 1 {
		if label, ok := m["ref"].(string); ok {
			rec, found := labelled[label]
			if !found {
				return nil, fmt.Errorf("unknown ref %q", label)
			}
			return rec.Key, nil
		}
	}
	return ir.FromNative(raw)
}
