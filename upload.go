package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imqcam/girder-upload/internal/uploader"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file and verify it",
		Long: `Upload a local file to the destination root. With --relative-to the
file's directories below that base are mirrored as folders; otherwise the item
lands directly in the root folder path.

An upload whose name, size and checksum already match the remote item is
skipped. After transfer the stored content is downloaded and re-hashed, and
the item metadata is read back and compared.

Examples:
  girder-upload upload scan.tif
  girder-upload upload --relative-to ./data ./data/2024/01/scan.tif
  girder-upload upload --metadata-json '{"sample": "A7"}' scan.tif
  girder-upload upload --root-folder-id 65a0c0ffee scan.tif`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().String("relative-to", "", "base directory whose structure is mirrored remotely")
	cmd.Flags().String("metadata-json", "", "item metadata as a JSON object or a path to a JSON file")
	cmd.Flags().Bool("journal", false, "record the outcome in the local journal")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	relativeTo, err := cmd.Flags().GetString("relative-to")
	if err != nil {
		return err
	}

	metaArg, err := cmd.Flags().GetString("metadata-json")
	if err != nil {
		return err
	}

	meta, err := uploader.ParseMetadata(metaArg)
	if err != nil {
		return err
	}

	s, err := NewSession(ctx, cc)
	if err != nil {
		return err
	}
	defer s.Close()

	req := uploader.Request{
		Path:        args[0],
		Metadata:    meta,
		RelativeTo:  relativeTo,
		Destination: s.Dest,
	}

	attachProgress(cc, &req)

	res, err := s.Uploader.Upload(ctx, req)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", args[0], err)
	}

	return printUploadResult(cc, res)
}

// attachProgress adds terminal progress bars to req when stderr is a TTY.
func attachProgress(cc *CLIContext, req *uploader.Request) {
	if cc.Flags.Quiet || !isTerminal(cc.Stderr) {
		return
	}

	fi, err := os.Stat(req.Path)
	if err != nil {
		return
	}

	name := filepath.Base(req.Path)
	req.TransferProgress = newProgressPrinter(cc.Stderr, "uploading "+name, fi.Size())
	req.VerifyProgress = newProgressPrinter(cc.Stderr, "verifying "+name, fi.Size())
}

// uploadJSON is the JSON output schema for an upload result.
type uploadJSON struct {
	RemotePath string `json:"remote_path"`
	ItemID     string `json:"item_id"`
	FileID     string `json:"file_id"`
	SHA256     string `json:"sha256"`
	Size       int64  `json:"size"`
	Skipped    bool   `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
}

func printUploadResult(cc *CLIContext, res *uploader.Result) error {
	if cc.Flags.JSON {
		return printJSON(cc.Stdout, uploadJSON{
			RemotePath: res.RemotePath,
			ItemID:     res.ItemID,
			FileID:     res.FileID,
			SHA256:     res.SHA256,
			Size:       res.Size,
			Skipped:    res.Skipped,
			DurationMS: res.Duration.Milliseconds(),
		})
	}

	if res.Skipped {
		fmt.Fprintf(cc.Stdout, "Skipped %s: identical content already uploaded (item %s)\n", res.RemotePath, res.ItemID)

		return nil
	}

	fmt.Fprintf(cc.Stdout, "Uploaded %s (%s, item %s, file %s)\n",
		res.RemotePath, formatSize(res.Size), res.ItemID, res.FileID)

	return nil
}
