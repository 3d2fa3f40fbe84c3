package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "One membership check"
models: ../models
collections:
  all:
    type: ObjectA
flow:
  - op: contains
    collection: all
    candidate: { type: ObjectA, key: 1 }
    expect: { result: false }
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "models"), 0755))
	scenariosDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.Mkdir(scenariosDir, 0755))
	path := filepath.Join(scenariosDir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, minimalScenario)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "..", "models"), scenario.Models)
	assert.Equal(t, "ObjectA", scenario.Collections["all"].Type)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, OpContains, scenario.Flow[0].Op)
	assert.Equal(t, "ObjectA", scenario.Flow[0].Candidate.Type)
	assert.Equal(t, 1, scenario.Flow[0].Candidate.Key)
	require.NotNil(t, scenario.Flow[0].Expect.Result)
	assert.False(t, *scenario.Flow[0].Expect.Result)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingModelsDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "models directory not found")
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		_, err := LoadScenario(f)
		assert.NoError(t, err, f)
	}
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: minimalScenario + "assertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name: "missing name",
			content: `
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: fetch, collection: all }]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: fetch, collection: all }]
`,
			wantErr: "description is required",
		},
		{
			name: "missing models",
			content: `
name: n
description: d
collections: { all: { type: ObjectA } }
flow: [{ op: fetch, collection: all }]
`,
			wantErr: "models is required",
		},
		{
			name: "no collections",
			content: `
name: n
description: d
models: m
flow: [{ op: fetch, collection: all }]
`,
			wantErr: "collections map is required",
		},
		{
			name: "collection without type",
			content: `
name: n
description: d
models: m
collections: { all: { filter: "tag == x" } }
flow: [{ op: fetch, collection: all }]
`,
			wantErr: "collections.all: type is required",
		},
		{
			name: "empty flow",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: []
`,
			wantErr: "flow list is required",
		},
		{
			name: "unknown collection",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: fetch, collection: some }]
`,
			wantErr: `flow[0]: unknown collection "some"`,
		},
		{
			name: "unknown op",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: count, collection: all }]
`,
			wantErr: `flow[0]: unknown op "count"`,
		},
		{
			name: "contains without candidate",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: contains, collection: all }]
`,
			wantErr: "candidate is required for contains",
		},
		{
			name: "fetch with candidate",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: fetch, collection: all, candidate: { ref: a } }]
`,
			wantErr: "fetch takes no candidate",
		},
		{
			name: "two candidate forms",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: contains, collection: all, candidate: { ref: a, type: ObjectA } }]
`,
			wantErr: "exactly one of ref, type and value",
		},
		{
			name: "as without ref",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: contains, collection: all, candidate: { type: ObjectA, as: ProxyObjectA } }]
`,
			wantErr: "as requires ref",
		},
		{
			name: "result and error",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: contains, collection: all, candidate: { ref: a }, expect: { result: true, error: store_failure } }]
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "unknown error name",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: contains, collection: all, candidate: { ref: a }, expect: { error: boom } }]
`,
			wantErr: `unknown error "boom"`,
		},
		{
			name: "path_count without path",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: fetch, collection: all }]
assertions: [{ type: path_count, count: 1 }]
`,
			wantErr: "path is required for path_count",
		},
		{
			name: "unknown assertion",
			content: `
name: n
description: d
models: m
collections: { all: { type: ObjectA } }
flow: [{ op: fetch, collection: all }]
assertions: [{ type: final_state }]
`,
			wantErr: `unknown assertion type "final_state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	files, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, files)
}
