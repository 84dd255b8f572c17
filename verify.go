package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imqcam/girder-upload/internal/checksum"
	"github.com/imqcam/girder-upload/internal/remotepath"
	"github.com/imqcam/girder-upload/internal/uploader"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file> [remote-path]",
		Short: "Compare a local file with its uploaded copy",
		Long: `Download the remote file's content, hash it, and compare the digest with
the local file. The remote path defaults to the file's name directly below the
destination root.

Exit code 0 if the contents match; exit code 1 on a mismatch or any error.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runVerify,
	}
}

// verifyReport is the JSON output schema for verify.
type verifyReport struct {
	LocalPath  string `json:"local_path"`
	RemotePath string `json:"remote_path"`
	FileID     string `json:"file_id"`
	Local      string `json:"local_sha256"`
	Remote     string `json:"remote_sha256"`
	Match      bool   `json:"match"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	local := args[0]
	remotePath := filepath.Base(local)

	if len(args) > 1 {
		remotePath = args[1]
	}

	localSum, size, err := checksum.HashFile(local, cc.Cfg.HashChunkSize)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", local, err)
	}

	s, err := NewSession(ctx, cc)
	if err != nil {
		return err
	}
	defer s.Close()

	root, _, all, err := s.target(remotePath)
	if err != nil {
		return err
	}

	_, file, err := s.Uploader.Resolver().ResolveItemAndFile(ctx, root, all)
	if err != nil {
		return err
	}

	var progress *progressPrinter
	if !cc.Flags.Quiet && isTerminal(cc.Stderr) {
		progress = newProgressPrinter(cc.Stderr, "downloading "+file.Name, file.Size)
	}

	remoteSum, n, err := checksum.HashRemoteFile(ctx, s.Remote, file.ID, progressOrNil(progress))
	if err != nil {
		return err
	}

	report := verifyReport{
		LocalPath:  local,
		RemotePath: remotepath.Join(all),
		FileID:     file.ID,
		Local:      localSum,
		Remote:     remoteSum,
		Match:      localSum == remoteSum && size == n,
	}

	if cc.Flags.JSON {
		if err := printJSON(cc.Stdout, report); err != nil {
			return err
		}
	} else {
		printTable(cc.Stdout, []string{"PATH", "LOCAL", "REMOTE", "STATUS"}, [][]string{
			{report.RemotePath, localSum, remoteSum, verifyStatus(report.Match)},
		})
	}

	if !report.Match {
		return &uploader.IntegrityError{
			Path:     local,
			Field:    uploader.FieldSHA256,
			Expected: localSum,
			Actual:   remoteSum,
		}
	}

	return nil
}

func verifyStatus(ok bool) string {
	if ok {
		return "ok"
	}

	return "MISMATCH"
}
