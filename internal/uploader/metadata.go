package uploader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/goccy/go-json"

	"github.com/imqcam/girder-upload/internal/errkind"
	"github.com/imqcam/girder-upload/internal/girder"
)

// Reserved metadata keys written on every upload.
const (
	KeyUploaderVersion = "uploaderVersion"
	KeyChecksum        = "checksum"
	keySHA256          = "sha256"
)

// ParseMetadata reads caller metadata given either as a literal JSON object
// or as the path of a file holding one. An empty argument yields nil.
func ParseMetadata(arg string) (girder.Metadata, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, nil
	}

	meta, literalErr := decodeObject([]byte(arg))
	if literalErr == nil {
		return meta, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || looksLikeJSON(arg) {
			return nil, fmt.Errorf("metadata is neither a JSON object nor a readable file (%w): %w",
				literalErr, errkind.ErrInvalidArgument)
		}

		return nil, fmt.Errorf("reading metadata file %s: %w: %w", arg, err, errkind.ErrInvalidArgument)
	}

	meta, err = decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("metadata file %s: %w: %w", arg, err, errkind.ErrInvalidArgument)
	}

	return meta, nil
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)

	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// decodeObject accepts exactly one JSON object.
func decodeObject(data []byte) (girder.Metadata, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errors.New("not a JSON object")
	}

	var meta girder.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	if meta == nil {
		meta = girder.Metadata{}
	}

	return meta, nil
}

// buildMetadata merges caller keys with the reserved keys. Reserved keys
// always win.
func buildMetadata(caller girder.Metadata, version, digest string) girder.Metadata {
	out := make(girder.Metadata, len(caller)+2)
	for k, v := range caller {
		out[k] = v
	}

	out[KeyUploaderVersion] = version
	out[KeyChecksum] = map[string]any{keySHA256: digest}

	return out
}

// storedDigest extracts checksum.sha256 from item metadata.
func storedDigest(meta girder.Metadata) (string, bool) {
	cs, ok := meta[KeyChecksum].(map[string]any)
	if !ok {
		return "", false
	}

	d, ok := cs[keySHA256].(string)

	return d, ok && d != ""
}

// metadataEqual compares two metadata maps after a JSON round trip, so a
// number sent as int equals the float64 the server returns.
func metadataEqual(a, b girder.Metadata) (bool, error) {
	na, err := normalizeJSON(a)
	if err != nil {
		return false, err
	}

	nb, err := normalizeJSON(b)
	if err != nil {
		return false, err
	}

	return reflect.DeepEqual(na, nb), nil
}

func normalizeJSON(m girder.Metadata) (any, error) {
	if m == nil {
		m = girder.Metadata{}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}

	return out, nil
}

// renderJSON formats metadata for IntegrityError messages.
func renderJSON(m girder.Metadata) string {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(m))
	}

	return string(b)
}
