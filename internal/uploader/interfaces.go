package uploader

import (
	"context"
	"io"

	"github.com/imqcam/girder-upload/internal/girder"
	"github.com/imqcam/girder-upload/internal/journal"
	"github.com/imqcam/girder-upload/internal/remotepath"
)

// Remote is the Girder surface the uploader drives. Satisfied by
// *girder.Client and testutil.FakeGirder.
type Remote interface {
	remotepath.Lister
	CreateItem(ctx context.Context, folderID, name string, reuseExisting bool) (*girder.Item, error)
	GetItem(ctx context.Context, itemID string) (*girder.Item, error)
	ReplaceItemMetadata(ctx context.Context, itemID string, meta girder.Metadata) (*girder.Item, error)
	UploadFile(
		ctx context.Context, parentType girder.ParentType, parentID, name string,
		r io.Reader, size int64, mimeType string, progress girder.Progress,
	) (*girder.File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer, progress girder.Progress) (int64, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// Recorder stores upload outcomes. Satisfied by *journal.Journal.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}
