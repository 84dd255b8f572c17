package uploader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imqcam/girder-upload/internal/errkind"
	"github.com/imqcam/girder-upload/internal/girder"
)

func TestParseMetadata(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "meta.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"sample": "A1", "temp": 300}`), 0o600))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"sample":`), 0o600))

	list := filepath.Join(dir, "list.json")
	require.NoError(t, os.WriteFile(list, []byte(`[1, 2]`), 0o600))

	meta, err := ParseMetadata(`{"k": "v", "n": {"x": true}}`)
	require.NoError(t, err)
	assert.Equal(t, girder.Metadata{"k": "v", "n": map[string]any{"x": true}}, meta)

	meta, err = ParseMetadata(good)
	require.NoError(t, err)
	assert.Equal(t, girder.Metadata{"sample": "A1", "temp": float64(300)}, meta)

	meta, err = ParseMetadata("")
	require.NoError(t, err)
	assert.Nil(t, meta)

	meta, err = ParseMetadata("{}")
	require.NoError(t, err)
	assert.Equal(t, girder.Metadata{}, meta)

	for _, arg := range []string{`{"k":`, `[1, 2]`, `"str"`, bad, list, filepath.Join(dir, "missing.json"), dir} {
		_, err := ParseMetadata(arg)
		assert.ErrorIs(t, err, errkind.ErrInvalidArgument, "arg %q", arg)
	}
}

func TestBuildMetadata_ReservedKeysWin(t *testing.T) {
	meta := buildMetadata(girder.Metadata{"checksum": "mine", "a": 1}, "v9", "abc")

	assert.Equal(t, girder.Metadata{
		"a":                1,
		KeyUploaderVersion: "v9",
		KeyChecksum:        map[string]any{"sha256": "abc"},
	}, meta)
}

func TestMetadataEqual_NormalizesNumbers(t *testing.T) {
	eq, err := metadataEqual(girder.Metadata{"n": 1, "s": []string{"a"}}, girder.Metadata{"n": float64(1), "s": []any{"a"}})
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = metadataEqual(girder.Metadata{"n": 1}, girder.Metadata{"n": 2})
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestStoredDigest(t *testing.T) {
	d, ok := storedDigest(girder.Metadata{"checksum": map[string]any{"sha256": "abc"}})
	assert.True(t, ok)
	assert.Equal(t, "abc", d)

	_, ok = storedDigest(girder.Metadata{"checksum": "abc"})
	assert.False(t, ok)

	_, ok = storedDigest(nil)
	assert.False(t, ok)
}

func TestRelativeSegments(t *testing.T) {
	base := t.TempDir()

	segs, err := relativeSegments(filepath.Join(base, "b", "c.bin"), base)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c.bin"}, segs)

	segs, err = relativeSegments(filepath.Join(base, "b", "c.bin"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"c.bin"}, segs)

	_, err = relativeSegments(filepath.Join(base, "..", "x"), base)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)

	_, err = relativeSegments(base, base)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)
}
