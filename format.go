package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"

	"github.com/imqcam/girder-upload/internal/girder"
)

// statusf prints a status message to w unless quiet mode is set.
func statusf(w io.Writer, quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(w, format, args...)
	}
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Stderr, cc.Flags.Quiet, format, args...)
}

// progressInterval rate-limits progress redraws.
const progressInterval = 200 * time.Millisecond

// progressPrinter renders byte progress on a single terminal line. It
// implements girder.Progress.
type progressPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	label string
	total int64
	last  time.Time
	now   func() time.Time
}

func newProgressPrinter(w io.Writer, label string, total int64) *progressPrinter {
	return &progressPrinter{w: w, label: label, total: total, now: time.Now}
}

func (p *progressPrinter) Transferred(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if n < p.total && now.Sub(p.last) < progressInterval {
		return
	}

	p.last = now
	fmt.Fprintf(p.w, "\r%s %s", p.label, formatProgress(n, p.total))

	if n >= p.total {
		fmt.Fprintln(p.w)
	}
}

// progressOrNil keeps a nil printer from becoming a non-nil girder.Progress.
func progressOrNil(p *progressPrinter) girder.Progress {
	if p == nil {
		return nil
	}

	return p
}

// formatProgress renders "3.0 MiB / 12 MiB (25%)".
func formatProgress(n, total int64) string {
	pct := 100
	if total > 0 {
		pct = int(n * 100 / total)
	}

	return fmt.Sprintf("%s / %s (%d%%)", humanize.IBytes(uint64(n)), humanize.IBytes(uint64(total)), pct)
}

// formatSize returns a human-readable size string (e.g. "1.2 MiB").
func formatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	if t.Year() == time.Now().Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	_, err = fmt.Fprintf(w, "%s\n", data)

	return err
}
