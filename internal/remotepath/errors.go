package remotepath

import (
	"fmt"

	"github.com/imqcam/girder-upload/internal/errkind"
)

// NotFoundError reports the first name that could not be found during a
// walk. It unwraps to errkind.ErrNotFound.
type NotFoundError struct {
	Kind     string // "collection", "folder", "item" or "file"
	Resolved string // portion of the path that did resolve, slash separated
	Missing  string // name that was not found
}

func (e *NotFoundError) Error() string {
	if e.Resolved == "" {
		return fmt.Sprintf("%s %q not found", e.Kind, e.Missing)
	}

	return fmt.Sprintf("%s %q not found under %q", e.Kind, e.Missing, e.Resolved)
}

func (e *NotFoundError) Unwrap() error {
	return errkind.ErrNotFound
}
