package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidModels(t *testing.T) {
	ws := newWorkspace(t)

	out, err := execute(NewValidateCommand(ws.opts("text")), ws.models)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Models valid: 5 entity type(s) in 1 file(s)")
	assert.Contains(t, out, "ChildObjectA (child of ObjectA) source=child_object_a_v key=id")
	assert.Contains(t, out, "ProxyObjectA (proxy of ObjectA) source=object_a")
}

func TestValidateValidModelsJSON(t *testing.T) {
	ws := newWorkspace(t)

	out, err := execute(NewValidateCommand(ws.opts("json")), ws.models, "--schema")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Entities, 5)

	names := make([]string, len(resp.Data.Entities))
	for i, e := range resp.Data.Entities {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"ChildObjectA", "GrandChildObjectA", "ObjectA", "ObjectB", "ProxyObjectA"}, names)

	objectA := resp.Data.Entities[2]
	assert.Equal(t, "base", objectA.Kind)
	assert.Equal(t, "object_a", objectA.Source)
	assert.Equal(t, []string{"name", "tag"}, objectA.Fields)

	proxy := resp.Data.Entities[4]
	assert.Equal(t, "proxy", proxy.Kind)
	assert.Equal(t, objectA.Class, proxy.Class)

	assert.NotEmpty(t, resp.Data.Schema)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	ws := newWorkspace(t)

	out, err := execute(NewValidateCommand(ws.opts("text")), filepath.Join(ws.dir, "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidateEmptyDirectory(t *testing.T) {
	ws := newWorkspace(t)
	empty := t.TempDir()

	out, err := execute(NewValidateCommand(ws.opts("json")), empty)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeNoFiles, resp.Error.Code)
}

func TestValidateFloatRejection(t *testing.T) {
	ws := newWorkspace(t)
	dir := t.TempDir()
	bad := `entity: Bad: {
	table: "bad"
	fields: { score: float }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte(bad), 0644))

	out, err := execute(NewValidateCommand(ws.opts("json")), dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeInvalidType, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "float")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"type", ErrCodeInvalidType},
		{"references", ErrCodeReferences},
		{"cue", ErrCodeLoadFailed},
		{"entity", ErrCodeEntity},
		{"entity.Bad", ErrCodeEntity},
		{"entity.Bad.proxy_of", ErrCodeInheritance},
		{"entity.Bad.parent", ErrCodeInheritance},
		{"entity.Bad.pk", ErrCodeInheritance},
		{"something", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
