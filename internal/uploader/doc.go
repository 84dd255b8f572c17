// Package uploader implements the idempotent upload routine: it maps a local
// file onto a remote folder path, skips content that is already present,
// transfers the file into a Girder item, attaches checksum and version
// metadata, and verifies the result by re-hashing the remote bytes and
// reading the metadata back.
//
// Everything runs sequentially on the calling goroutine. Nothing is rolled
// back when a step after the transfer fails; the remote item is left as is.
package uploader
