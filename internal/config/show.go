package config

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

const redacted = "(set)"

// RenderEffective writes the resolved configuration as an annotated summary.
// The API key is never printed.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	if r.FileLoaded {
		ew.printf("# Effective configuration (file %s)\n\n", r.ConfigPath)
	} else {
		ew.printf("# Effective configuration (defaults, no file at %s)\n\n", r.ConfigPath)
	}

	key := "(unset)"
	if r.APIKey != "" {
		key = redacted
	}

	ew.printf("[server]\n")
	ew.printf("  api_url = %q\n", r.APIURL)
	ew.printf("  api_key = %s\n", key)
	ew.printf("  timeout = %q\n\n", r.Timeout.String())

	ew.printf("[destination]\n")

	if r.RootFolderID != "" {
		ew.printf("  root_folder_id   = %q\n", r.RootFolderID)
	} else {
		ew.printf("  collection_name  = %q\n", r.CollectionName)
		ew.printf("  root_folder_path = %q\n", r.RootFolderPath)
	}

	ew.printf("  public_folders   = %t\n\n", r.PublicFolders)

	ew.printf("[transfer]\n")
	ew.printf("  upload_chunk_size = %q\n", humanize.IBytes(uint64(r.UploadChunkSize)))
	ew.printf("  hash_chunk_size   = %q\n\n", humanize.IBytes(uint64(r.HashChunkSize)))

	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", r.LogLevel)
	ew.printf("  log_format = %q\n\n", r.LogFormat)

	ew.printf("[journal]\n")
	ew.printf("  enabled = %t\n", r.JournalEnabled)
	ew.printf("  path    = %q\n\n", r.JournalPath)

	ew.printf("[watch]\n")
	ew.printf("  settle_time = %q\n", r.SettleTime.String())

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
