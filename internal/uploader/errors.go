package uploader

import (
	"fmt"

	"github.com/imqcam/girder-upload/internal/errkind"
)

// Verified fields reported by IntegrityError.
const (
	FieldSHA256   = "sha256"
	FieldMetadata = "metadata"
)

// IntegrityError reports that the uploaded state does not match what was
// sent. It unwraps to errkind.ErrIntegrity.
type IntegrityError struct {
	Path     string // local file
	Field    string // FieldSHA256 or FieldMetadata
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s mismatch for %s: expected %s, got %s", e.Field, e.Path, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() error {
	return errkind.ErrIntegrity
}
