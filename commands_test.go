package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imqcam/girder-upload/internal/config"
	"github.com/imqcam/girder-upload/internal/errkind"
	"github.com/imqcam/girder-upload/internal/girder"
	"github.com/imqcam/girder-upload/internal/uploader"
	"github.com/imqcam/girder-upload/testutil"
)

const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

// isolateEnv points every config, data, and .env lookup into a temp dir.
func isolateEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvAPIURL, "")
	t.Chdir(dir)

	return dir
}

// runCLI executes the root command with args and returns stdout. The remote
// is fake; a nil fake makes any dial fail.
func runCLI(t *testing.T, fake *testutil.FakeGirder, args ...string) (string, error) {
	t.Helper()

	old := dialRemote
	t.Cleanup(func() { dialRemote = old })

	dialRemote = func(context.Context, *config.Resolved, *slog.Logger) (remote, error) {
		if fake == nil {
			return nil, errors.New("no remote in this test")
		}

		return fake, nil
	}

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), err
}

type cliEnv struct {
	dir  string
	fake *testutil.FakeGirder
	root girder.Folder
}

// newCLIEnv seeds the default destination, collection "Test" / folder "Test".
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	dir := isolateEnv(t)
	t.Setenv(config.EnvAPIKey, "test-key")

	fake := testutil.NewFakeGirder()
	col := fake.AddCollection("Test")
	root := fake.AddFolder(girder.ParentCollection, col.ID, "Test")

	return &cliEnv{dir: dir, fake: fake, root: root}
}

func (e *cliEnv) write(t *testing.T, rel, content string) string {
	t.Helper()

	path := filepath.Join(e.dir, "files", rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	return runCLI(t, e.fake, args...)
}

func TestUpload_DefaultDestination(t *testing.T) {
	e := newCLIEnv(t)
	path := e.write(t, "a.txt", "hello")

	out, err := e.run(t, "upload", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded collection:Test/Test/a.txt")

	items := e.fake.Items(e.root.ID)
	require.Len(t, items, 1)
	assert.Equal(t, "a.txt", items[0].Name)
	assert.Equal(t, map[string]any{"sha256": helloSHA256}, items[0].Meta[uploader.KeyChecksum])

	out, err = e.run(t, "upload", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped collection:Test/Test/a.txt")
}

func TestUpload_RelativeToAndMetadata(t *testing.T) {
	e := newCLIEnv(t)
	path := e.write(t, "sub/b.txt", "data")

	_, err := e.run(t, "upload",
		"--relative_to", filepath.Join(e.dir, "files"),
		"--metadata-json", `{"sample": "A7"}`,
		path)
	require.NoError(t, err)

	folders := e.fake.Folders(e.root.ID)
	require.Len(t, folders, 1)
	assert.Equal(t, "sub", folders[0].Name)

	items := e.fake.Items(folders[0].ID)
	require.Len(t, items, 1)
	assert.Equal(t, "A7", items[0].Meta["sample"])
}

func TestUpload_JSONOutput(t *testing.T) {
	e := newCLIEnv(t)
	path := e.write(t, "a.txt", "hello")

	out, err := e.run(t, "--json", "upload", path)
	require.NoError(t, err)

	var res uploadJSON
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "collection:Test/Test/a.txt", res.RemotePath)
	assert.Equal(t, helloSHA256, res.SHA256)
	assert.Equal(t, int64(5), res.Size)
	assert.False(t, res.Skipped)
	assert.NotEmpty(t, res.FileID)
}

func TestUpload_MissingAPIKey(t *testing.T) {
	e := newCLIEnv(t)
	t.Setenv(config.EnvAPIKey, "")

	_, err := e.run(t, "upload", e.write(t, "a.txt", "hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
	assert.ErrorIs(t, err, errkind.ErrAuthentication)
}

func TestUpload_APIKeyFromDotEnv(t *testing.T) {
	e := newCLIEnv(t)
	t.Setenv(config.EnvAPIKey, "")
	os.Unsetenv(config.EnvAPIKey)

	require.NoError(t, os.WriteFile(filepath.Join(e.dir, ".env"), []byte(config.EnvAPIKey+"=dotenv-key\n"), 0o600))

	_, err := e.run(t, "upload", e.write(t, "a.txt", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", os.Getenv(config.EnvAPIKey))
}

func TestUpload_InvalidMetadata(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "upload", "--metadata-json", "{not json", e.write(t, "a.txt", "hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)
	assert.Empty(t, e.fake.Items(e.root.ID))
}

func TestUpload_MissingCollection(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "upload", "--collection-name", "Nope", "--root-folder-path", "x", e.write(t, "a.txt", "hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrNotFound)
}

func TestUpload_CollectionOnlyUsesDefaultFolderPath(t *testing.T) {
	e := newCLIEnv(t)
	col := e.fake.AddCollection("Data")
	dataRoot := e.fake.AddFolder(girder.ParentCollection, col.ID, "Test")

	out, err := e.run(t, "upload", "--collection-name", "Data", e.write(t, "a.txt", "hello"))
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded collection:Data/Test/a.txt")
	assert.Len(t, e.fake.Items(dataRoot.ID), 1)
	assert.Empty(t, e.fake.Items(e.root.ID))
}

func TestUpload_RootFolderID(t *testing.T) {
	e := newCLIEnv(t)
	other := e.fake.AddFolder(girder.ParentFolder, e.root.ID, "direct")

	out, err := e.run(t, "upload", "--root-folder-id", other.ID, e.write(t, "a.txt", "hello"))
	require.NoError(t, err)
	assert.Contains(t, out, "folder:"+other.ID+"/a.txt")
	assert.Len(t, e.fake.Items(other.ID), 1)
}

func TestMkdir(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "mkdir", "x/y")
	require.NoError(t, err)

	x := e.fake.Folders(e.root.ID)
	require.Len(t, x, 1)

	y := e.fake.Folders(x[0].ID)
	require.Len(t, y, 1)
	assert.Equal(t, y[0].ID+"\tTest/x/y\n", out)

	// Resolving again creates nothing new.
	_, err = e.run(t, "mkdir", "x/y")
	require.NoError(t, err)
	assert.Len(t, e.fake.Folders(x[0].ID), 1)
}

func TestMkdir_MissingRootFolderPath(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "mkdir", "--root-folder-path", "Absent", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrNotFound)
	assert.Len(t, e.fake.Folders(e.root.ID), 0)
}

func TestFind(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "upload", e.write(t, "a.txt", "hello"))
	require.NoError(t, err)

	out, err := e.run(t, "--json", "find", "a.txt")
	require.NoError(t, err)

	var res findJSON
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	items := e.fake.Items(e.root.ID)
	require.Len(t, items, 1)
	assert.Equal(t, items[0].ID, res.ItemID)
	assert.Equal(t, "Test/a.txt", res.Path)
	assert.Equal(t, int64(5), res.Size)

	_, err = e.run(t, "find", "missing.txt")
	assert.ErrorIs(t, err, errkind.ErrNotFound)
}

func TestRmdir(t *testing.T) {
	e := newCLIEnv(t)
	e.fake.AddFolder(girder.ParentFolder, e.root.ID, "old")

	_, err := e.run(t, "rmdir", "old")
	require.NoError(t, err)
	assert.Empty(t, e.fake.Folders(e.root.ID))

	_, err = e.run(t, "rmdir", "old")
	assert.ErrorIs(t, err, errkind.ErrNotFound)
}

func TestRmdir_RefusesRoot(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "rmdir", "/")
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)
	assert.Zero(t, e.fake.Calls("DeleteFolder"))
}

func TestVerify(t *testing.T) {
	e := newCLIEnv(t)
	path := e.write(t, "a.txt", "hello")

	_, err := e.run(t, "upload", path)
	require.NoError(t, err)

	out, err := e.run(t, "verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	e.fake.CorruptDownloads = true

	out, err = e.run(t, "verify", path, "a.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrIntegrity)
	assert.Contains(t, out, "MISMATCH")
}

func TestHistory(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "history")
	require.NoError(t, err)
	assert.Empty(t, out)

	path := e.write(t, "a.txt", "hello")

	for range 2 {
		_, err = e.run(t, "upload", "--journal", path)
		require.NoError(t, err)
	}

	out, err = e.run(t, "--json", "history")
	require.NoError(t, err)

	var entries []historyJSON
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "skipped", entries[0].Outcome)
	assert.Equal(t, "uploaded", entries[1].Outcome)
	assert.Equal(t, helloSHA256, entries[1].SHA256)

	out, err = e.run(t, "history", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped")
	assert.NotContains(t, out, "uploaded")
}

func TestConfigShow_JSON(t *testing.T) {
	newCLIEnv(t)

	out, err := runCLI(t, nil, "--json", "config", "show")
	require.NoError(t, err)

	var cfg configJSON
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.True(t, cfg.APIKeySet)
	assert.NotContains(t, out, "test-key")
	assert.Equal(t, "Test", cfg.CollectionName)
	assert.Equal(t, config.DefaultAPIURL, cfg.APIURL)
	assert.False(t, cfg.FileLoaded)
}

func TestUploadHandler_MirrorsWatchedTree(t *testing.T) {
	e := newCLIEnv(t)
	watched := filepath.Join(e.dir, "files")
	path := e.write(t, "run1/c.txt", "watched")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var stdout bytes.Buffer

	cc := &CLIContext{Logger: logger, Stdout: &stdout, Stderr: io.Discard}
	s := &Session{
		Remote:   e.fake,
		Uploader: uploader.New(e.fake, uploader.Options{Logger: logger}),
		Dest:     uploader.Destination{Collection: "Test", FolderPath: "Test"},
		logger:   logger,
	}

	tracker := &uploadTracker{}
	handle := uploadHandler(cc, s, watched, girder.Metadata{"run": "1"}, tracker)
	require.NoError(t, handle(context.Background(), path))

	inFlight, _ := tracker.current()
	assert.Empty(t, inFlight)

	run := e.fake.Folders(e.root.ID)
	require.Len(t, run, 1)
	assert.Equal(t, "run1", run[0].Name)

	items := e.fake.Items(run[0].ID)
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].Meta["run"])
	assert.Contains(t, stdout.String(), "Uploaded collection:Test/Test/run1/c.txt")
}
