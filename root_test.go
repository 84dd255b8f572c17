package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imqcam/girder-upload/internal/config"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their defaults. Tests set globals
// AFTER newRootCmd() returns, or let Cobra parse them via SetArgs.

func saveLogFlags(t *testing.T) {
	t.Helper()

	oldVerbose, oldQuiet, oldFormat := flagVerbose, flagQuiet, flagLogFormat

	t.Cleanup(func() {
		flagVerbose, flagQuiet, flagLogFormat = oldVerbose, oldQuiet, oldFormat
	})

	flagVerbose, flagQuiet, flagLogFormat = false, false, ""
}

func enabled(l *slog.Logger, level slog.Level) bool {
	return l.Handler().Enabled(context.Background(), level)
}

func TestBuildLogger_Default(t *testing.T) {
	saveLogFlags(t)

	logger := buildLogger(nil, &bytes.Buffer{})

	assert.True(t, enabled(logger, slog.LevelInfo))
	assert.False(t, enabled(logger, slog.LevelDebug))
}

func TestBuildLogger_ConfigLevel(t *testing.T) {
	saveLogFlags(t)

	logger := buildLogger(&config.Resolved{LogLevel: "warn", LogFormat: "text"}, &bytes.Buffer{})

	assert.True(t, enabled(logger, slog.LevelWarn))
	assert.False(t, enabled(logger, slog.LevelInfo))
}

func TestBuildLogger_FlagsOverrideConfig(t *testing.T) {
	saveLogFlags(t)

	cfg := &config.Resolved{LogLevel: "error", LogFormat: "text"}

	flagVerbose = true
	assert.True(t, enabled(buildLogger(cfg, &bytes.Buffer{}), slog.LevelDebug))

	flagVerbose, flagQuiet = false, true
	cfg.LogLevel = "debug"
	logger := buildLogger(cfg, &bytes.Buffer{})
	assert.True(t, enabled(logger, slog.LevelError))
	assert.False(t, enabled(logger, slog.LevelWarn))
}

func TestNewLogHandler_Formats(t *testing.T) {
	var buf bytes.Buffer

	_, isJSON := newLogHandler(&buf, "json", slog.LevelInfo).(*slog.JSONHandler)
	assert.True(t, isJSON)

	_, isText := newLogHandler(&buf, "text", slog.LevelInfo).(*slog.TextHandler)
	assert.True(t, isText)

	// A buffer is not a terminal, so auto falls back to plain text.
	_, isText = newLogHandler(&buf, "auto", slog.LevelInfo).(*slog.TextHandler)
	assert.True(t, isText)

	color := newLogHandler(&buf, "color", slog.LevelInfo)
	_, isText = color.(*slog.TextHandler)
	_, isJSON = color.(*slog.JSONHandler)
	assert.False(t, isText || isJSON)
}

func TestNewLogHandler_JSONOutput(t *testing.T) {
	var buf bytes.Buffer

	slog.New(newLogHandler(&buf, "json", slog.LevelInfo)).Info("hello", slog.String("path", "a.txt"))

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"path":"a.txt"`)
}

func TestIsTerminal_NonFile(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	expected := []string{"upload", "mkdir", "find", "rmdir", "hash", "verify", "history", "watch", "config"}
	for _, name := range expected {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{
		"config", "api-url", "api-key", "root-folder-id", "collection-name",
		"root-folder-path", "log-format", "json", "verbose", "quiet",
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "expected persistent flag %q", name)
	}
}

func TestNewRootCmd_VerboseQuietExclusive(t *testing.T) {
	isolateEnv(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--verbose", "--quiet", "hash", "x"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestUnderscoreFlagSpelling(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, nil, "--root_folder_id", "abc123", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `root_folder_id   = "abc123"`)
}

func TestHash_SkipsConfig(t *testing.T) {
	isolateEnv(t)

	// A broken config file must not matter to hash.
	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[server\n"), 0o600))
	t.Setenv(config.EnvConfig, bad)

	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	out, err := runCLI(t, nil, "hash", path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad  "+path+"\n", out)
}

func TestConfigShow_BrokenConfigFails(t *testing.T) {
	isolateEnv(t)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[server]\napi_ulr = \"x\"\n"), 0o600))

	_, err := runCLI(t, nil, "--config", bad, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "api_url"`)
}

func TestMustCLIContext_PanicsWithoutContext(t *testing.T) {
	assert.Panics(t, func() { mustCLIContext(context.Background()) })
}
