package remotepath

import (
	"fmt"

	"github.com/imqcam/girder-upload/internal/errkind"
)

// Root selects where a path walk starts: a folder addressed by id, or a
// top-level collection addressed by name.
type Root interface {
	fmt.Stringer
	isRoot()
}

// FolderRoot starts resolution at an existing folder.
type FolderRoot struct {
	ID string
}

// CollectionRoot starts resolution at the collection with this exact name.
type CollectionRoot struct {
	Name string
}

func (FolderRoot) isRoot()     {}
func (CollectionRoot) isRoot() {}

func (r FolderRoot) String() string     { return "folder:" + r.ID }
func (r CollectionRoot) String() string { return "collection:" + r.Name }

// NewRoot builds a Root from two optional selectors. Exactly one must be set.
func NewRoot(folderID, collection string) (Root, error) {
	switch {
	case folderID != "" && collection != "":
		return nil, fmt.Errorf("remotepath: both root folder id %q and collection %q given: %w",
			folderID, collection, errkind.ErrInvalidArgument)
	case folderID != "":
		return FolderRoot{ID: folderID}, nil
	case collection != "":
		return CollectionRoot{Name: collection}, nil
	default:
		return nil, fmt.Errorf("remotepath: neither root folder id nor collection given: %w",
			errkind.ErrInvalidArgument)
	}
}

// validRoot rejects nil and empty roots.
func validRoot(root Root) error {
	switch r := root.(type) {
	case FolderRoot:
		if r.ID != "" {
			return nil
		}
	case CollectionRoot:
		if r.Name != "" {
			return nil
		}
	}

	return fmt.Errorf("remotepath: empty resolution root: %w", errkind.ErrInvalidArgument)
}
