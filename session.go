package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/imqcam/girder-upload/internal/config"
	"github.com/imqcam/girder-upload/internal/errkind"
	"github.com/imqcam/girder-upload/internal/girder"
	"github.com/imqcam/girder-upload/internal/journal"
	"github.com/imqcam/girder-upload/internal/remotepath"
	"github.com/imqcam/girder-upload/internal/uploader"
)

// remote is the Girder surface the CLI drives: everything the uploader needs
// plus folder deletion for rmdir.
type remote interface {
	uploader.Remote
	DeleteFolder(ctx context.Context, folderID string) error
}

// dialRemote connects and authenticates. Tests replace it with an in-memory
// fake.
var dialRemote = func(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (remote, error) {
	return girder.Dial(ctx, cfg.APIURL, cfg.APIKey, girder.Options{
		Logger:    logger,
		UserAgent: "girder-upload/" + version,
		Timeout:   cfg.Timeout,
		ChunkSize: cfg.UploadChunkSize,
	})
}

// Session holds an authenticated remote, the destination from the resolved
// config, and an Uploader bound to both. The journal is only opened when
// enabled.
type Session struct {
	Remote   remote
	Uploader *uploader.Uploader
	Dest     uploader.Destination
	Journal  *journal.Journal
	logger   *slog.Logger
}

// NewSession authenticates against the configured server and builds the
// uploader. Close releases the journal.
func NewSession(ctx context.Context, cc *CLIContext) (*Session, error) {
	cfg := cc.Cfg

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key: set $%s, [server] api_key, or --api-key: %w",
			config.EnvAPIKey, errkind.ErrAuthentication)
	}

	r, err := dialRemote(ctx, cfg, cc.Logger)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Remote: r,
		Dest: uploader.Destination{
			FolderID:   cfg.RootFolderID,
			Collection: cfg.CollectionName,
			FolderPath: cfg.RootFolderPath,
		},
		logger: cc.Logger,
	}

	opts := uploader.Options{
		Logger:        cc.Logger,
		Version:       version,
		HashChunkSize: cfg.HashChunkSize,
		PublicFolders: cfg.PublicFolders,
	}

	if cfg.JournalEnabled {
		j, err := journal.Open(ctx, cfg.JournalPath, cc.Logger)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}

		s.Journal = j
		opts.Journal = j
	}

	s.Uploader = uploader.New(r, opts)

	return s, nil
}

// Close releases the journal if one was opened.
func (s *Session) Close() {
	if s.Journal == nil {
		return
	}

	if err := s.Journal.Close(); err != nil {
		s.logger.Warn("closing journal", slog.String("error", err.Error()))
	}
}

// target resolves a remote path argument to the root and full segment list
// below it. rootSegs is the configured folder path inside a collection root.
func (s *Session) target(p string) (root remotepath.Root, rootSegs, all []string, err error) {
	root, rootSegs, overridden, err := s.Dest.Root()
	if err != nil {
		return nil, nil, nil, err
	}

	if overridden {
		s.logger.Warn("root folder id supersedes collection name and root folder path",
			slog.String("root_folder_id", s.Dest.FolderID))
	}

	all = append(append([]string(nil), rootSegs...), remotepath.Split(p)...)

	return root, rootSegs, all, nil
}
