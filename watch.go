package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/imqcam/girder-upload/internal/config"
	"github.com/imqcam/girder-upload/internal/girder"
	"github.com/imqcam/girder-upload/internal/uploader"
	"github.com/imqcam/girder-upload/internal/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload files as they appear in a directory",
		Long: `Watch a directory tree and upload every regular file once it has stopped
changing for the configured settle time ([watch] settle_time, default 2s).
Files already present are uploaded at start; unchanged files are skipped.
The directory structure below <dir> is mirrored remotely. Hidden files and
directories are ignored.

Only one watcher may run per directory; watchers on different directories can
run side by side. The first SIGINT or SIGTERM stops after the current upload;
a second one exits immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().String("metadata-json", "", "metadata attached to every uploaded item")
	cmd.Flags().Bool("journal", false, "record outcomes in the local journal")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	dir, err := filepath.Abs(args[0])
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

	lock, err := acquireWatchLock(config.DefaultDataDir(), dir, time.Now())
	if err != nil {
		return err
	}
	defer lock.Release()

	tracker := &uploadTracker{}
	ctx := newWatchShutdown(cc.Logger, tracker).context(cmd.Context())

	s, err := NewSession(ctx, cc)
	if err != nil {
		return err
	}
	defer s.Close()

	w := watch.New(watch.Options{
		Logger:     cc.Logger,
		SettleTime: cc.Cfg.SettleTime,
	})

	return w.Run(ctx, dir, uploadHandler(cc, s, dir, meta, tracker))
}

// uploadHandler uploads one settled file, mirroring its path below dir. The
// tracker, when set, holds the path for the duration of the upload.
func uploadHandler(
	cc *CLIContext, s *Session, dir string, meta girder.Metadata, tracker *uploadTracker,
) watch.Handler {
	return func(ctx context.Context, path string) error {
		if tracker != nil {
			tracker.begin(path)
			defer tracker.end()
		}

		res, err := s.Uploader.Upload(ctx, uploader.Request{
			Path:        path,
			Metadata:    meta,
			RelativeTo:  dir,
			Destination: s.Dest,
		})
		if err != nil {
			return fmt.Errorf("uploading %s: %w", path, err)
		}

		cc.Logger.Debug("watch upload finished",
			slog.String("path", path),
			slog.Bool("skipped", res.Skipped),
		)

		return printUploadResult(cc, res)
	}
}
