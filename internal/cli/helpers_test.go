package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lazyset/internal/config"
	"github.com/roach88/lazyset/internal/testutil"
)

// workspace is a temporary models directory, fixtures file and database
// path with a matching configuration.
type workspace struct {
	dir      string
	models   string
	fixtures string
	cfg      *config.Config
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		dir:      dir,
		models:   filepath.Join(dir, "models"),
		fixtures: filepath.Join(dir, "fixtures.yaml"),
	}
	require.NoError(t, os.Mkdir(ws.models, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ws.models, "objects.cue"), []byte(testutil.Models), 0644))
	require.NoError(t, os.WriteFile(ws.fixtures, []byte(testutil.Fixtures), 0644))

	ws.cfg = &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "lazyset.db"), BusyTimeout: time.Second},
		Models:   ws.models,
		Log:      config.LogConfig{Level: "warn", Format: "text"},
	}
	return ws
}

func (ws *workspace) opts(format string) *RootOptions {
	return &RootOptions{Format: format, Config: ws.cfg}
}

// seed loads the sample fixtures into the workspace database.
func (ws *workspace) seed(t *testing.T) {
	t.Helper()
	_, err := execute(NewSeedCommand(ws.opts("text")), ws.models, ws.fixtures)
	require.NoError(t, err)
}

// execute runs cmd with args and returns its standard output.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
