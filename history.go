package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/imqcam/girder-upload/internal/journal"
)

const defaultHistoryLimit = 20

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent uploads from the local journal",
		Long: `List the newest entries of the upload journal. Uploads are only recorded
when the journal is enabled ([journal] enabled = true, or --journal).`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "maximum number of entries (0 for all)")

	return cmd
}

// historyJSON is the JSON output schema for one journal entry.
type historyJSON struct {
	ID         string `json:"id"`
	LocalPath  string `json:"local_path"`
	RemotePath string `json:"remote_path"`
	ItemID     string `json:"item_id,omitempty"`
	FileID     string `json:"file_id,omitempty"`
	SHA256     string `json:"sha256"`
	Size       int64  `json:"size"`
	Outcome    string `json:"outcome"`
	RecordedAt string `json:"recorded_at"`
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	path := cc.Cfg.JournalPath
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cc.Statusf("No journal at %s\n", path)

		return nil
	}

	j, err := journal.Open(ctx, path, cc.Logger)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer j.Close()

	entries, err := j.List(ctx, limit)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		out := make([]historyJSON, 0, len(entries))
		for i := range entries {
			e := &entries[i]
			out = append(out, historyJSON{
				ID:         e.ID,
				LocalPath:  e.LocalPath,
				RemotePath: e.RemotePath,
				ItemID:     e.ItemID,
				FileID:     e.FileID,
				SHA256:     e.SHA256,
				Size:       e.Size,
				Outcome:    string(e.Outcome),
				RecordedAt: e.RecordedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}

		return printJSON(cc.Stdout, out)
	}

	if len(entries) == 0 {
		cc.Statusf("Journal is empty\n")

		return nil
	}

	rows := make([][]string, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		rows = append(rows, []string{
			formatTime(e.RecordedAt), string(e.Outcome), formatSize(e.Size), e.RemotePath, e.LocalPath,
		})
	}

	printTable(cc.Stdout, []string{"RECORDED", "OUTCOME", "SIZE", "REMOTE", "LOCAL"}, rows)
	cc.Statusf("%s shown\n", pluralEntries(len(entries)))

	return nil
}

func pluralEntries(n int) string {
	if n == 1 {
		return "1 entry"
	}

	return strconv.Itoa(n) + " entries"
}
