package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "quickchat"}
	require.NoError(t, RegisterFlags(cmd))
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadConfig(newCommand(t))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".quickchat", "messages"), cfg.WorkDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DisplayName)
	assert.False(t, cfg.DryRun)
}

func TestLoadConfig_Flags(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(newCommand(t,
		"--work-dir", dir+"/./inbox",
		"--log-level", "WARNING",
		"--user", " Angela Michelle ",
		"--dry-run",
	))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "inbox"), cfg.WorkDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "Angela Michelle", cfg.DisplayName)
	assert.True(t, cfg.DryRun)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "quickchat.yaml")
	require.NoError(t, os.WriteFile(file, []byte("work-dir: /from/file\nuser: File User\nlog-level: error\n"), 0o644))

	t.Setenv("QUICKCHAT_USER", "Env User")
	t.Setenv("QUICKCHAT_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(newCommand(t, "--config", file, "--log-level", "warn"))
	require.NoError(t, err)

	assert.Equal(t, "/from/file", cfg.WorkDir, "file beats the flag default")
	assert.Equal(t, "Env User", cfg.DisplayName, "env beats the file")
	assert.Equal(t, "warn", cfg.LogLevel, "explicit flag beats env")
	assert.Equal(t, file, cfg.ConfigFile)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(newCommand(t, "--log-level", "verbose"))
	assert.ErrorContains(t, err, "invalid --log-level")

	_, err = LoadConfig(newCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.ErrorContains(t, err, "failed to read config file")
}
