package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/imqcam/girder-upload/internal/checksum"
	"github.com/imqcam/girder-upload/internal/errkind"
	"github.com/imqcam/girder-upload/internal/girder"
	"github.com/imqcam/girder-upload/internal/journal"
	"github.com/imqcam/girder-upload/internal/remotepath"
)

const defaultMIMEType = "application/octet-stream"

// Options configures an Uploader.
type Options struct {
	Logger *slog.Logger
	// Version is stored under the uploaderVersion metadata key.
	Version string
	// HashChunkSize is the local read size for hashing. Zero uses the
	// checksum package default.
	HashChunkSize int
	// PublicFolders sets the visibility of folders created on the way.
	PublicFolders bool
	// Journal, when non-nil, receives one entry per completed upload or skip.
	Journal Recorder
}

// Request describes one file to upload.
type Request struct {
	Path        string
	Metadata    girder.Metadata
	RelativeTo  string
	Destination Destination
	// TransferProgress receives bytes acknowledged by the server.
	TransferProgress girder.Progress
	// VerifyProgress receives bytes re-read during verification.
	VerifyProgress girder.Progress
}

// Result describes a finished upload.
type Result struct {
	RemotePath string
	ItemID     string
	FileID     string
	SHA256     string
	Size       int64
	Skipped    bool
	Duration   time.Duration
}

// Uploader runs uploads against one authenticated remote.
type Uploader struct {
	remote   Remote
	resolver *remotepath.Resolver
	logger   *slog.Logger
	version  string
	hashSize int
	journal  Recorder
}

// New creates an Uploader over remote.
func New(remote Remote, opts Options) *Uploader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	return &Uploader{
		remote:   remote,
		resolver: remotepath.NewResolver(remote, logger, opts.PublicFolders),
		logger:   logger,
		version:  version,
		hashSize: opts.HashChunkSize,
		journal:  opts.Journal,
	}
}

// Resolver returns the path resolver the uploader walks the remote tree with.
func (u *Uploader) Resolver() *remotepath.Resolver {
	return u.resolver
}

// Upload transfers req.Path to its destination, or skips it when identical
// content is already there.
func (u *Uploader) Upload(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	plan, err := u.plan(req)
	if err != nil {
		return nil, err
	}

	logger := u.logger.With(slog.String("path", req.Path), slog.String("remote", plan.remotePath))

	digest, size, err := checksum.HashFile(req.Path, u.hashSize)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", req.Path, err)
	}

	if size != plan.size {
		logger.Warn("file changed size while hashing",
			slog.Int64("stat_size", plan.size),
			slog.Int64("hashed_size", size),
		)
	}

	existing, err := u.findCurrent(ctx, plan, digest, size)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		logger.Info("already exists, skipping", slog.String("item_id", existing.ItemID))

		existing.SHA256 = digest
		existing.Size = size
		existing.Skipped = true
		existing.Duration = time.Since(start)
		u.record(ctx, req.Path, existing, journal.OutcomeSkipped)

		return existing, nil
	}

	if _, err := u.resolver.ResolveFolder(ctx, plan.root, plan.rootSegments, false); err != nil {
		return nil, fmt.Errorf("resolving destination %s: %w", req.Destination, err)
	}

	folder, err := u.resolver.ResolveFolder(ctx, plan.root, plan.folderSegments(), true)
	if err != nil {
		return nil, fmt.Errorf("creating folders for %s: %w", plan.remotePath, err)
	}

	item, err := u.remote.CreateItem(ctx, folder.ID, plan.name, true)
	if err != nil {
		return nil, fmt.Errorf("creating item %s: %w", plan.remotePath, err)
	}

	previous, err := u.remote.ListFiles(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("listing files of item %s: %w", item.ID, err)
	}

	file, err := u.transfer(ctx, req, plan, item.ID, size)
	if err != nil {
		return nil, err
	}

	meta := buildMetadata(req.Metadata, u.version, digest)
	if _, err := u.remote.ReplaceItemMetadata(ctx, item.ID, meta); err != nil {
		return nil, fmt.Errorf("setting metadata on %s: %w", plan.remotePath, err)
	}

	if err := u.verify(ctx, req, item.ID, file.ID, digest, meta); err != nil {
		return nil, err
	}

	u.removeStale(ctx, logger, previous, file.ID)

	res := &Result{
		RemotePath: plan.remotePath,
		ItemID:     item.ID,
		FileID:     file.ID,
		SHA256:     digest,
		Size:       size,
		Duration:   time.Since(start),
	}
	u.record(ctx, req.Path, res, journal.OutcomeUploaded)

	logger.Info("upload verified",
		slog.String("item_id", item.ID),
		slog.String("file_id", file.ID),
		slog.Int64("size", size),
		slog.String("sha256", digest),
		slog.Duration("duration", res.Duration),
	)

	return res, nil
}

// uploadPlan is the validated, purely local part of a request.
type uploadPlan struct {
	root         remotepath.Root
	rootSegments []string
	relSegments  []string
	name         string
	remotePath   string
	size         int64
}

// segments returns the full remote path of the file.
func (p *uploadPlan) segments() []string {
	return slices.Concat(p.rootSegments, p.relSegments)
}

// folderSegments returns the remote path of the file's parent folder.
func (p *uploadPlan) folderSegments() []string {
	s := p.segments()

	return s[:len(s)-1]
}

// plan validates a request without touching the remote.
func (u *Uploader) plan(req Request) (*uploadPlan, error) {
	root, rootSegs, overridden, err := req.Destination.Root()
	if err != nil {
		return nil, err
	}

	if overridden {
		u.logger.Warn("root folder id given, ignoring collection and folder path",
			slog.String("root_folder_id", req.Destination.FolderID),
			slog.String("collection", req.Destination.Collection),
			slog.String("folder_path", req.Destination.FolderPath),
		)
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s does not exist: %w", req.Path, errkind.ErrInvalidArgument)
		}

		return nil, fmt.Errorf("stat %s: %w", req.Path, err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file: %w", req.Path, errkind.ErrInvalidArgument)
	}

	rel, err := relativeSegments(req.Path, req.RelativeTo)
	if err != nil {
		return nil, err
	}

	if len(rel) == 0 {
		return nil, fmt.Errorf("%s has no usable file name: %w", req.Path, errkind.ErrInvalidArgument)
	}

	p := &uploadPlan{
		root:         root,
		rootSegments: rootSegs,
		relSegments:  rel,
		name:         rel[len(rel)-1],
		size:         info.Size(),
	}

	if _, isCollection := root.(remotepath.CollectionRoot); isCollection && len(p.folderSegments()) == 0 {
		return nil, fmt.Errorf("%s would be placed directly in collection %q, which holds only folders: %w",
			req.Path, req.Destination.Collection, errkind.ErrInvalidArgument)
	}

	p.remotePath = root.String() + "/" + remotepath.Join(p.segments())

	return p, nil
}

// findCurrent returns a skip result when the remote already holds this
// content. Missing path components mean "not uploaded yet".
func (u *Uploader) findCurrent(ctx context.Context, p *uploadPlan, digest string, size int64) (*Result, error) {
	item, file, err := u.resolver.ResolveItemAndFile(ctx, p.root, p.segments())
	if err != nil {
		if errors.Is(err, errkind.ErrNotFound) {
			u.logger.Debug("no existing upload", slog.String("remote", p.remotePath), slog.String("reason", err.Error()))

			return nil, nil
		}

		return nil, fmt.Errorf("checking for existing %s: %w", p.remotePath, err)
	}

	if file.Name != p.name || file.Size != size {
		u.logger.Debug("existing file differs",
			slog.String("remote", p.remotePath),
			slog.String("remote_name", file.Name),
			slog.Int64("remote_size", file.Size),
		)

		return nil, nil
	}

	if stored, ok := storedDigest(item.Meta); ok && stored != digest {
		u.logger.Debug("existing checksum differs",
			slog.String("remote", p.remotePath),
			slog.String("stored", stored),
		)

		return nil, nil
	}

	return &Result{RemotePath: p.remotePath, ItemID: item.ID, FileID: file.ID}, nil
}

func (u *Uploader) transfer(
	ctx context.Context, req Request, p *uploadPlan, itemID string, size int64,
) (*girder.File, error) {
	mimeType := defaultMIMEType
	if mt, err := mimetype.DetectFile(req.Path); err == nil {
		mimeType = mt.String()
	} else {
		u.logger.Debug("mime detection failed", slog.String("path", req.Path), slog.String("error", err.Error()))
	}

	f, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", req.Path, err)
	}
	defer f.Close()

	file, err := u.remote.UploadFile(ctx, girder.ParentItem, itemID, p.name, f, size, mimeType, req.TransferProgress)
	if err != nil {
		return nil, fmt.Errorf("uploading %s to %s: %w", req.Path, p.remotePath, err)
	}

	return file, nil
}

// verify re-hashes the remote content and reads the metadata back.
func (u *Uploader) verify(
	ctx context.Context, req Request, itemID, fileID, digest string, sent girder.Metadata,
) error {
	remoteDigest, _, err := checksum.HashRemoteFile(ctx, u.remote, fileID, req.VerifyProgress)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", req.Path, err)
	}

	if remoteDigest != digest {
		return &IntegrityError{Path: req.Path, Field: FieldSHA256, Expected: digest, Actual: remoteDigest}
	}

	stored, err := u.remote.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("reading back metadata of %s: %w", req.Path, err)
	}

	equal, err := metadataEqual(sent, stored.Meta)
	if err != nil {
		return fmt.Errorf("comparing metadata of %s: %w", req.Path, err)
	}

	if !equal {
		return &IntegrityError{
			Path:     req.Path,
			Field:    FieldMetadata,
			Expected: renderJSON(sent),
			Actual:   renderJSON(stored.Meta),
		}
	}

	return nil
}

// removeStale deletes files a reused item carried before this upload.
// Failures are logged and otherwise ignored.
func (u *Uploader) removeStale(ctx context.Context, logger *slog.Logger, previous []girder.File, keep string) {
	for _, f := range previous {
		if f.ID == keep {
			continue
		}

		if err := u.remote.DeleteFile(ctx, f.ID); err != nil {
			logger.Warn("could not remove previous file",
				slog.String("file_id", f.ID),
				slog.String("error", err.Error()),
			)

			continue
		}

		logger.Info("removed previous file", slog.String("file_id", f.ID))
	}
}

func (u *Uploader) record(ctx context.Context, path string, res *Result, outcome journal.Outcome) {
	if u.journal == nil {
		return
	}

	err := u.journal.Record(ctx, journal.Entry{
		LocalPath:  path,
		RemotePath: res.RemotePath,
		ItemID:     res.ItemID,
		FileID:     res.FileID,
		SHA256:     res.SHA256,
		Size:       res.Size,
		Outcome:    outcome,
	})
	if err != nil {
		u.logger.Warn("could not record upload in journal",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
