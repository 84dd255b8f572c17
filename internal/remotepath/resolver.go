// Package remotepath walks Girder's collection → folder → item → file tree
// by name. The walk only needs the small Lister capability, so it runs
// unchanged against the HTTP client or an in-memory fake.
package remotepath

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/imqcam/girder-upload/internal/errkind"
	"github.com/imqcam/girder-upload/internal/girder"
)

// Lister is the subset of the Girder API the resolver consumes.
type Lister interface {
	ListCollections(ctx context.Context) ([]girder.Collection, error)
	ListFolders(ctx context.Context, parentType girder.ParentType, parentID, name string) ([]girder.Folder, error)
	CreateFolder(ctx context.Context, parentType girder.ParentType, parentID, name string, public bool) (*girder.Folder, error)
	ListItems(ctx context.Context, folderID, name string) ([]girder.Item, error)
	ListFiles(ctx context.Context, itemID string) ([]girder.File, error)
}

// Resolver turns (root, segments) pairs into folder, item, and file handles.
// Nothing is cached; every call walks from the root.
type Resolver struct {
	lister Lister
	logger *slog.Logger
	public bool
}

// NewResolver creates a resolver. public sets the visibility of folders it
// creates.
func NewResolver(l Lister, logger *slog.Logger, public bool) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{lister: l, logger: logger, public: public}
}

// ResolveFolder walks segments below root. Missing folders are created when
// create is true and reported as *NotFoundError otherwise. With no segments
// the root itself is returned; for a collection root that handle carries the
// collection's ID and ParentType collection.
func (r *Resolver) ResolveFolder(
	ctx context.Context, root Root, segments []string, create bool,
) (*girder.Folder, error) {
	cur, err := r.rootHandle(ctx, root)
	if err != nil {
		return nil, err
	}

	segs := normalize(segments)

	for depth, name := range segs {
		next, err := r.child(ctx, cur, name)
		if err != nil {
			return nil, err
		}

		if next == nil {
			if !create {
				return nil, &NotFoundError{
					Kind:     "folder",
					Resolved: prefixPath(root, segs[:depth]),
					Missing:  name,
				}
			}

			next, err = r.lister.CreateFolder(ctx, cur.kind, cur.folder.ID, name, r.public)
			if err != nil {
				return nil, fmt.Errorf("remotepath: creating folder %q under %q: %w",
					name, prefixPath(root, segs[:depth]), err)
			}

			r.logger.Info("created folder",
				slog.String("path", prefixPath(root, segs[:depth+1])),
				slog.String("folder_id", next.ID),
				slog.Bool("public", r.public),
			)
		}

		cur = position{folder: *next, kind: girder.ParentFolder}
	}

	out := cur.folder

	return &out, nil
}

// ResolveItem resolves the item named by the last segment inside the folder
// named by the others. Folders are never created.
func (r *Resolver) ResolveItem(ctx context.Context, root Root, segments []string) (*girder.Item, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("remotepath: item path under %s is empty: %w", root, errkind.ErrInvalidArgument)
	}

	segs := normalize(segments)
	dir, name := segs[:len(segs)-1], segs[len(segs)-1]

	folder, err := r.ResolveFolder(ctx, root, dir, false)
	if err != nil {
		return nil, err
	}

	if folder.ParentType == girder.ParentCollection && len(dir) == 0 {
		return nil, &NotFoundError{Kind: "item", Resolved: prefixPath(root, dir), Missing: name}
	}

	items, err := r.lister.ListItems(ctx, folder.ID, name)
	if err != nil {
		return nil, fmt.Errorf("remotepath: listing items in %q: %w", prefixPath(root, dir), err)
	}

	var found *girder.Item

	for i := range items {
		if sameName(items[i].Name, name) {
			found = &items[i]
		}
	}

	if found == nil {
		return nil, &NotFoundError{Kind: "item", Resolved: prefixPath(root, dir), Missing: name}
	}

	return found, nil
}

// ResolveItemAndFile resolves an item and returns it with its first file.
func (r *Resolver) ResolveItemAndFile(
	ctx context.Context, root Root, segments []string,
) (*girder.Item, *girder.File, error) {
	item, err := r.ResolveItem(ctx, root, segments)
	if err != nil {
		return nil, nil, err
	}

	files, err := r.lister.ListFiles(ctx, item.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("remotepath: listing files of item %s: %w", item.ID, err)
	}

	if len(files) == 0 {
		return nil, nil, &NotFoundError{
			Kind:     "file",
			Resolved: prefixPath(root, normalize(segments)),
			Missing:  item.Name,
		}
	}

	f := files[0]

	return item, &f, nil
}

// position is the current node of a walk and the parent type its children
// are listed under.
type position struct {
	folder girder.Folder
	kind   girder.ParentType
}

func (r *Resolver) rootHandle(ctx context.Context, root Root) (position, error) {
	if err := validRoot(root); err != nil {
		return position{}, err
	}

	switch rt := root.(type) {
	case FolderRoot:
		return position{folder: girder.Folder{ID: rt.ID}, kind: girder.ParentFolder}, nil
	case CollectionRoot:
		col, err := r.findCollection(ctx, rt.Name)
		if err != nil {
			return position{}, err
		}

		return position{
			folder: girder.Folder{
				ID:         col.ID,
				Name:       col.Name,
				ParentType: girder.ParentCollection,
				Public:     col.Public,
			},
			kind: girder.ParentCollection,
		}, nil
	}

	return position{}, validRoot(nil)
}

func (r *Resolver) findCollection(ctx context.Context, name string) (*girder.Collection, error) {
	cols, err := r.lister.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("remotepath: listing collections: %w", err)
	}

	var found *girder.Collection

	for i := range cols {
		if sameName(cols[i].Name, name) {
			found = &cols[i]
		}
	}

	if found == nil {
		return nil, &NotFoundError{Kind: "collection", Missing: name}
	}

	r.logger.Debug("resolved collection",
		slog.String("name", name),
		slog.String("collection_id", found.ID),
	)

	return found, nil
}

// child returns the last-listed folder named name under cur, or nil.
func (r *Resolver) child(ctx context.Context, cur position, name string) (*girder.Folder, error) {
	folders, err := r.lister.ListFolders(ctx, cur.kind, cur.folder.ID, name)
	if err != nil {
		return nil, fmt.Errorf("remotepath: listing folders under %s %s: %w", cur.kind, cur.folder.ID, err)
	}

	var found *girder.Folder

	for i := range folders {
		if sameName(folders[i].Name, name) {
			found = &folders[i]
		}
	}

	return found, nil
}

// prefixPath renders root plus segments for messages.
func prefixPath(root Root, segments []string) string {
	if len(segments) == 0 {
		return root.String()
	}

	return root.String() + "/" + Join(segments)
}
