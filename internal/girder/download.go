package girder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
)

// DownloadFile streams the content of a file into w and returns the number of
// bytes written. progress, when non-nil, receives the cumulative byte count
// after every read from the response body.
func (c *Client) DownloadFile(ctx context.Context, fileID string, w io.Writer, progress Progress) (int64, error) {
	path := fmt.Sprintf("/file/%s/download", url.PathEscape(fileID))

	c.logger.Debug("downloading file", slog.String("file_id", fileID))

	resp, err := c.http.R().
		SetContext(ctx).
		DisableAutoReadResponse().
		Get(path)
	if err != nil {
		return 0, fmt.Errorf("girder: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.IsErrorState() {
		body, _ := io.ReadAll(resp.Body)

		return 0, newGirderError(resp.StatusCode, body)
	}

	buf := make([]byte, downloadBufSize)

	var total int64

	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, fmt.Errorf("girder: download %s: writing: %w", fileID, werr)
			}

			total += int64(n)
			report(progress, total)
		}

		if rerr == io.EOF {
			break
		}

		if rerr != nil {
			return total, fmt.Errorf("girder: download %s: reading: %w", fileID, rerr)
		}
	}

	c.logger.Debug("download complete",
		slog.String("file_id", fileID),
		slog.Int64("bytes", total),
	)

	return total, nil
}
