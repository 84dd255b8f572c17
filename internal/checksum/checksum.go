// Package checksum computes SHA-256 digests of local files and of remote
// file content streamed from the server.
package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/imqcam/girder-upload/internal/girder"
)

// DefaultChunkSize is the local read size used when callers pass zero.
const DefaultChunkSize = 64 * 1024

// Downloader streams a remote file's bytes into w.
type Downloader interface {
	DownloadFile(ctx context.Context, fileID string, w io.Writer, progress girder.Progress) (int64, error)
}

// HashFile returns the lowercase hex SHA-256 of the file at path and its
// size in bytes.
func HashFile(path string, chunkSize int) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("checksum: %w", err)
	}
	defer f.Close()

	digest, n, err := HashReader(f, chunkSize, nil)
	if err != nil {
		return "", 0, fmt.Errorf("checksum: hashing %s: %w", path, err)
	}

	return digest, n, nil
}

// HashReader hashes r to EOF, reading chunkSize bytes at a time and reporting
// the running byte count to progress after every read.
func HashReader(r io.Reader, chunkSize int, progress girder.Progress) (string, int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	h := sha256.New()
	buf := make([]byte, chunkSize)

	var total int64

	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			total += int64(n)

			if progress != nil {
				progress.Transferred(total)
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", total, err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), total, nil
}

// HashRemoteFile streams a remote file through SHA-256. The server's stored
// checksum fields are never consulted.
func HashRemoteFile(
	ctx context.Context, d Downloader, fileID string, progress girder.Progress,
) (string, int64, error) {
	h := sha256.New()

	n, err := d.DownloadFile(ctx, fileID, h, progress)
	if err != nil {
		return "", n, fmt.Errorf("checksum: hashing remote file %s: %w", fileID, err)
	}

	return hex.EncodeToString(h.Sum(nil)), n, nil
}
