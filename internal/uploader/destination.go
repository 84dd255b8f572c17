package uploader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/imqcam/girder-upload/internal/errkind"
	"github.com/imqcam/girder-upload/internal/remotepath"
)

// Destination selects the remote root. FolderID takes precedence over
// Collection and FolderPath when both forms are set.
type Destination struct {
	FolderID   string
	Collection string
	FolderPath string // slash separated, relative to Collection
}

// Root returns the resolution root and the folder segments below it.
// overridden reports that collection arguments were ignored in favour of
// FolderID.
func (d Destination) Root() (root remotepath.Root, segments []string, overridden bool, err error) {
	if d.FolderID != "" {
		overridden = d.Collection != "" || d.FolderPath != ""
		root, err = remotepath.NewRoot(d.FolderID, "")

		return root, nil, overridden, err
	}

	root, err = remotepath.NewRoot("", d.Collection)
	if err != nil {
		return nil, nil, false, fmt.Errorf("destination: %w", err)
	}

	return root, remotepath.Split(d.FolderPath), false, nil
}

// String renders the destination for logs.
func (d Destination) String() string {
	if d.FolderID != "" {
		return "folder:" + d.FolderID
	}

	if d.FolderPath == "" {
		return "collection:" + d.Collection
	}

	return "collection:" + d.Collection + "/" + strings.Trim(d.FolderPath, "/")
}

// relativeSegments returns the remote segments a local file maps to. With no
// base the file's own name is used. A path outside base is rejected.
func relativeSegments(path, base string) ([]string, error) {
	if base == "" {
		return remotepath.Split(filepath.Base(path)), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", base, err)
	}

	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == "." || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return nil, fmt.Errorf("%s is not inside %s: %w", path, base, errkind.ErrInvalidArgument)
	}

	return remotepath.Split(filepath.ToSlash(rel)), nil
}
