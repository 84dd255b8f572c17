package girder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

// UploadFile streams size bytes from r into a new file under the given parent
// (normally an item). The upload is initialised with POST /file and the
// content follows in chunkSize pieces through POST /file/chunk. progress, when
// non-nil, receives the cumulative byte count after each chunk the server
// acknowledges; a zero-byte file reports 0 once.
func (c *Client) UploadFile(
	ctx context.Context, parentType ParentType, parentID, name string,
	r io.Reader, size int64, mimeType string, progress Progress,
) (*File, error) {
	if size < 0 {
		return nil, fmt.Errorf("girder: upload %s: negative size %d", name, size)
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	c.logger.Info("starting upload",
		slog.String("parent_type", string(parentType)),
		slog.String("parent_id", parentID),
		slog.String("name", name),
		slog.Int64("size", size),
		slog.String("mime_type", mimeType),
	)

	query := map[string]string{
		"parentType": string(parentType),
		"parentId":   parentID,
		"name":       name,
		"size":       strconv.FormatInt(size, 10),
		"mimeType":   mimeType,
	}

	var up uploadResponse
	if err := c.doInto(ctx, http.MethodPost, "/file", query, nil, &up); err != nil {
		return nil, fmt.Errorf("girder: initialising upload of %s: %w", name, err)
	}

	if up.isFile() {
		report(progress, 0)
		f := up.toFile()

		return &f, nil
	}

	f, err := c.sendChunks(ctx, up.ID, name, r, size, progress)
	if err != nil {
		return nil, err
	}

	c.logger.Info("upload complete",
		slog.String("name", name),
		slog.String("file_id", f.ID),
		slog.Int64("size", f.Size),
	)

	return f, nil
}

// sendChunks posts the content of an initialised upload. Each chunk is read
// fully into memory so the request carries a Content-Length.
func (c *Client) sendChunks(
	ctx context.Context, uploadID, name string, r io.Reader, size int64, progress Progress,
) (*File, error) {
	bufSize := min(c.chunkSize, size)
	buf := make([]byte, bufSize)

	var offset int64

	for offset < size {
		want := min(int64(len(buf)), size-offset)

		n, err := io.ReadFull(r, buf[:want])
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("girder: upload %s: source ended at %d of %d bytes", name, offset+int64(n), size)
			}

			return nil, fmt.Errorf("girder: upload %s: reading source: %w", name, err)
		}

		query := map[string]string{
			"uploadId": uploadID,
			"offset":   strconv.FormatInt(offset, 10),
		}

		chunk := c.newRequest(ctx, query).
			SetHeader("Content-Type", "application/octet-stream").
			SetBodyBytes(buf[:n])

		body, err := c.send(chunk, http.MethodPost, "/file/chunk")
		if err != nil {
			return nil, fmt.Errorf("girder: upload %s: chunk at offset %d: %w", name, offset, err)
		}

		offset += int64(n)
		report(progress, offset)

		var up uploadResponse
		if err := jsonUnmarshal(body, &up); err != nil {
			return nil, fmt.Errorf("girder: upload %s: decoding chunk response: %w", name, err)
		}

		if up.isFile() {
			if offset != size {
				return nil, fmt.Errorf("girder: upload %s: server finalised at %d of %d bytes", name, offset, size)
			}

			f := up.toFile()

			return &f, nil
		}
	}

	return nil, fmt.Errorf("girder: upload %s: server did not finalise after %d bytes", name, size)
}
