package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/pdfbot/core/buildinfo"
)

func TestVersionCmd(t *testing.T) {
	origVersion, origCommit, origDate := buildinfo.Version, buildinfo.Commit, buildinfo.Date
	buildinfo.Version, buildinfo.Commit, buildinfo.Date = "1.2.0", "abc123", "2026-01-01"
	defer func() { buildinfo.Version, buildinfo.Commit, buildinfo.Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "pdfbot 1.2.0 (commit: abc123, built: 2026-01-01)\n", buf.String())
}

func TestConfigCmdMasksSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "telegram:\n  token: \"123:secret\"\naccess:\n  admins: \"1, 2\"\nmail:\n  username: ops@example.com\n  password: hunter2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"config", "--config", path})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.NotContains(t, out, "123:secret")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "ops@example.com")
	assert.Contains(t, out, "run_mode: longpoll")
}

func TestMigrateCmdRequiresDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  token: \"1:x\"\n"), 0o600))
	t.Setenv("DB_ENABLED", "false")

	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "-c", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is disabled")
}
