// Package testutil provides an in-memory Girder server double shared by the
// resolver, uploader, and CLI tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/imqcam/girder-upload/internal/girder"
)

// fakeChunk is the transfer granularity used for progress callbacks.
const fakeChunk = 4

type fakeFile struct {
	file girder.File
	data []byte
}

// FakeGirder is an in-memory collection → folder → item → file tree that
// implements the client methods the uploader and resolver consume. Listings
// return entries in creation order. All methods are safe for concurrent use.
type FakeGirder struct {
	mu sync.Mutex

	collections []girder.Collection
	folders     []girder.Folder
	items       []girder.Item
	files       []fakeFile

	calls map[string]int

	// CorruptDownloads flips the first byte of every downloaded file.
	CorruptDownloads bool
	// StoreMetadata, when set, rewrites metadata before it is stored.
	StoreMetadata func(girder.Metadata) girder.Metadata
	// FailDeleteFile makes DeleteFile return this error.
	FailDeleteFile error
}

// NewFakeGirder returns an empty fake server.
func NewFakeGirder() *FakeGirder {
	return &FakeGirder{calls: make(map[string]int)}
}

// Calls returns how many times the named method was invoked.
func (g *FakeGirder) Calls(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls[method]
}

// ResetCalls zeroes every call counter.
func (g *FakeGirder) ResetCalls() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = make(map[string]int)
}

func (g *FakeGirder) count(method string) {
	g.calls[method]++
}

// AddCollection seeds a collection.
func (g *FakeGirder) AddCollection(name string) girder.Collection {
	g.mu.Lock()
	defer g.mu.Unlock()

	c := girder.Collection{ID: uuid.NewString(), Name: name, Public: true}
	g.collections = append(g.collections, c)

	return c
}

// AddFolder seeds a folder without counting a CreateFolder call.
func (g *FakeGirder) AddFolder(parentType girder.ParentType, parentID, name string) girder.Folder {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.addFolder(parentType, parentID, name, true)
}

func (g *FakeGirder) addFolder(parentType girder.ParentType, parentID, name string, public bool) girder.Folder {
	f := girder.Folder{
		ID:         uuid.NewString(),
		Name:       name,
		ParentID:   parentID,
		ParentType: parentType,
		Public:     public,
	}
	g.folders = append(g.folders, f)

	return f
}

// Folders returns the folders directly under a parent.
func (g *FakeGirder) Folders(parentID string) []girder.Folder {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []girder.Folder

	for _, f := range g.folders {
		if f.ParentID == parentID {
			out = append(out, f)
		}
	}

	return out
}

// Items returns the items in a folder.
func (g *FakeGirder) Items(folderID string) []girder.Item {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []girder.Item

	for _, it := range g.items {
		if it.FolderID == folderID {
			out = append(out, copyItem(it))
		}
	}

	return out
}

// Content returns the stored bytes of a file.
func (g *FakeGirder) Content(fileID string) ([]byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, f := range g.files {
		if f.file.ID == fileID {
			return bytes.Clone(f.data), true
		}
	}

	return nil, false
}

// ItemFiles returns the files attached to an item.
func (g *FakeGirder) ItemFiles(itemID string) []girder.File {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.itemFiles(itemID)
}

func (g *FakeGirder) itemFiles(itemID string) []girder.File {
	var out []girder.File

	for _, f := range g.files {
		if f.file.ItemID == itemID {
			out = append(out, f.file)
		}
	}

	return out
}

// ListCollections implements the client method.
func (g *FakeGirder) ListCollections(_ context.Context) ([]girder.Collection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("ListCollections")

	return append([]girder.Collection(nil), g.collections...), nil
}

// ListFolders implements the client method.
func (g *FakeGirder) ListFolders(
	_ context.Context, parentType girder.ParentType, parentID, name string,
) ([]girder.Folder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("ListFolders")

	var out []girder.Folder

	for _, f := range g.folders {
		if f.ParentType == parentType && f.ParentID == parentID && (name == "" || f.Name == name) {
			out = append(out, f)
		}
	}

	return out, nil
}

// CreateFolder implements the client method. Like Girder it rejects a
// duplicate name under the same parent.
func (g *FakeGirder) CreateFolder(
	_ context.Context, parentType girder.ParentType, parentID, name string, public bool,
) (*girder.Folder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("CreateFolder")

	if !g.parentExists(parentType, parentID) {
		return nil, badRequest("Invalid " + string(parentType) + " id (" + parentID + ").")
	}

	for _, f := range g.folders {
		if f.ParentID == parentID && f.Name == name {
			return nil, badRequest("A folder with that name already exists here.")
		}
	}

	f := g.addFolder(parentType, parentID, name, public)

	return &f, nil
}

// DeleteFolder removes a folder and everything below it.
func (g *FakeGirder) DeleteFolder(_ context.Context, folderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("DeleteFolder")

	if !g.parentExists(girder.ParentFolder, folderID) {
		return notFound("Folder not found.")
	}

	g.deleteFolder(folderID)

	return nil
}

func (g *FakeGirder) deleteFolder(folderID string) {
	var children []string

	for _, f := range g.folders {
		if f.ParentID == folderID {
			children = append(children, f.ID)
		}
	}

	for _, id := range children {
		g.deleteFolder(id)
	}

	var itemIDs []string

	items := g.items[:0]
	for _, it := range g.items {
		if it.FolderID == folderID {
			itemIDs = append(itemIDs, it.ID)

			continue
		}

		items = append(items, it)
	}
	g.items = items

	for _, id := range itemIDs {
		g.removeFiles(func(f girder.File) bool { return f.ItemID == id })
	}

	folders := g.folders[:0]
	for _, f := range g.folders {
		if f.ID != folderID {
			folders = append(folders, f)
		}
	}
	g.folders = folders
}

// ListItems implements the client method.
func (g *FakeGirder) ListItems(_ context.Context, folderID, name string) ([]girder.Item, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("ListItems")

	var out []girder.Item

	for _, it := range g.items {
		if it.FolderID == folderID && (name == "" || it.Name == name) {
			out = append(out, copyItem(it))
		}
	}

	return out, nil
}

// CreateItem implements the client method.
func (g *FakeGirder) CreateItem(_ context.Context, folderID, name string, reuseExisting bool) (*girder.Item, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("CreateItem")

	if !g.parentExists(girder.ParentFolder, folderID) {
		return nil, badRequest("Invalid folder id (" + folderID + ").")
	}

	if reuseExisting {
		for _, it := range g.items {
			if it.FolderID == folderID && it.Name == name {
				c := copyItem(it)

				return &c, nil
			}
		}
	}

	it := girder.Item{ID: uuid.NewString(), Name: name, FolderID: folderID, Meta: girder.Metadata{}}
	g.items = append(g.items, it)
	c := copyItem(it)

	return &c, nil
}

// GetItem implements the client method.
func (g *FakeGirder) GetItem(_ context.Context, itemID string) (*girder.Item, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("GetItem")

	i := g.itemIndex(itemID)
	if i < 0 {
		return nil, badRequest("Invalid item id (" + itemID + ").")
	}

	c := copyItem(g.items[i])

	return &c, nil
}

// ReplaceItemMetadata implements the client method. Stored metadata goes
// through a JSON round trip, so numbers come back as float64 like they do
// from the real server.
func (g *FakeGirder) ReplaceItemMetadata(_ context.Context, itemID string, meta girder.Metadata) (*girder.Item, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("ReplaceItemMetadata")

	i := g.itemIndex(itemID)
	if i < 0 {
		return nil, badRequest("Invalid item id (" + itemID + ").")
	}

	if g.StoreMetadata != nil {
		meta = g.StoreMetadata(meta)
	}

	stored, err := roundTrip(meta)
	if err != nil {
		return nil, err
	}

	g.items[i].Meta = stored
	c := copyItem(g.items[i])

	return &c, nil
}

// ListFiles implements the client method.
func (g *FakeGirder) ListFiles(_ context.Context, itemID string) ([]girder.File, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("ListFiles")

	if g.itemIndex(itemID) < 0 {
		return nil, badRequest("Invalid item id (" + itemID + ").")
	}

	return g.itemFiles(itemID), nil
}

// UploadFile implements the client method. Progress is reported every
// fakeChunk bytes.
func (g *FakeGirder) UploadFile(
	_ context.Context, parentType girder.ParentType, parentID, name string,
	r io.Reader, size int64, mimeType string, progress girder.Progress,
) (*girder.File, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("UploadFile")

	if parentType != girder.ParentItem || g.itemIndex(parentID) < 0 {
		return nil, badRequest("Invalid parent (" + parentID + ").")
	}

	data, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return nil, fmt.Errorf("fake upload: %w", err)
	}

	if int64(len(data)) != size {
		return nil, badRequest(fmt.Sprintf("Received %d of %d bytes.", len(data), size))
	}

	if progress != nil {
		if size == 0 {
			progress.Transferred(0)
		}

		for off := int64(0); off < size; {
			off = min(off+fakeChunk, size)
			progress.Transferred(off)
		}
	}

	f := girder.File{ID: uuid.NewString(), Name: name, ItemID: parentID, Size: size, MimeType: mimeType}
	g.files = append(g.files, fakeFile{file: f, data: data})

	i := g.itemIndex(parentID)
	g.items[i].Size += size

	return &f, nil
}

// DownloadFile implements the client method.
func (g *FakeGirder) DownloadFile(_ context.Context, fileID string, w io.Writer, progress girder.Progress) (int64, error) {
	g.mu.Lock()

	g.count("DownloadFile")

	var data []byte

	found := false

	for _, f := range g.files {
		if f.file.ID == fileID {
			data = bytes.Clone(f.data)
			found = true
		}
	}

	corrupt := g.CorruptDownloads
	g.mu.Unlock()

	if !found {
		return 0, notFound("File not found.")
	}

	if corrupt && len(data) > 0 {
		data[0] ^= 0xff
	}

	var total int64

	for off := 0; off < len(data); off += fakeChunk {
		end := min(off+fakeChunk, len(data))

		n, err := w.Write(data[off:end])
		total += int64(n)

		if err != nil {
			return total, err
		}

		if progress != nil {
			progress.Transferred(total)
		}
	}

	return total, nil
}

// DeleteFile implements the client method.
func (g *FakeGirder) DeleteFile(_ context.Context, fileID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count("DeleteFile")

	if g.FailDeleteFile != nil {
		return g.FailDeleteFile
	}

	var itemID string

	var size int64

	for _, f := range g.files {
		if f.file.ID == fileID {
			itemID, size = f.file.ItemID, f.file.Size
		}
	}

	if itemID == "" {
		return notFound("File not found.")
	}

	g.removeFiles(func(f girder.File) bool { return f.ID == fileID })

	if i := g.itemIndex(itemID); i >= 0 {
		g.items[i].Size -= size
	}

	return nil
}

func (g *FakeGirder) removeFiles(match func(girder.File) bool) {
	files := g.files[:0]
	for _, f := range g.files {
		if !match(f.file) {
			files = append(files, f)
		}
	}
	g.files = files
}

func (g *FakeGirder) parentExists(parentType girder.ParentType, id string) bool {
	switch parentType {
	case girder.ParentCollection:
		for _, c := range g.collections {
			if c.ID == id {
				return true
			}
		}
	case girder.ParentFolder:
		for _, f := range g.folders {
			if f.ID == id {
				return true
			}
		}
	}

	return false
}

func (g *FakeGirder) itemIndex(id string) int {
	for i := range g.items {
		if g.items[i].ID == id {
			return i
		}
	}

	return -1
}

func copyItem(it girder.Item) girder.Item {
	meta, err := roundTrip(it.Meta)
	if err == nil {
		it.Meta = meta
	}

	return it
}

// roundTrip deep-copies metadata through JSON.
func roundTrip(meta girder.Metadata) (girder.Metadata, error) {
	if meta == nil {
		return girder.Metadata{}, nil
	}

	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("fake metadata: %w", err)
	}

	out := girder.Metadata{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("fake metadata: %w", err)
	}

	return out, nil
}

func badRequest(msg string) error {
	return &girder.GirderError{StatusCode: http.StatusBadRequest, Type: "rest", Message: msg, Err: girder.ErrBadRequest}
}

func notFound(msg string) error {
	return &girder.GirderError{StatusCode: http.StatusNotFound, Type: "rest", Message: msg, Err: girder.ErrNotFound}
}
