// Package errkind holds the sentinel errors that classify every failure the
// uploader can report. Packages wrap these with their own typed errors so
// callers can branch with errors.Is regardless of where the failure started.
package errkind

import "errors"

var (
	// ErrInvalidArgument marks conflicting or malformed inputs. It is always
	// returned before any remote state is changed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a collection, folder, item, or file that does not
	// exist where it was expected.
	ErrNotFound = errors.New("not found")

	// ErrAuthentication marks rejected credentials or an unreachable server
	// at client construction.
	ErrAuthentication = errors.New("authentication failed")

	// ErrIntegrity marks a post-upload hash or metadata mismatch.
	ErrIntegrity = errors.New("integrity check failed")
)
