package girder

// ParentType names the kind of resource a folder or file hangs under.
type ParentType string

// Parent types accepted by the folder and file endpoints.
const (
	ParentCollection ParentType = "collection"
	ParentFolder     ParentType = "folder"
	ParentUser       ParentType = "user"
	ParentItem       ParentType = "item"
)

// Metadata is the free-form key/value mapping attached to an item.
type Metadata map[string]any

// Collection is a top-level namespace grouping folders.
type Collection struct {
	ID     string
	Name   string
	Public bool
	Size   int64
}

// Folder is a directory-like container under a collection, user, or folder.
type Folder struct {
	ID         string
	Name       string
	ParentID   string
	ParentType ParentType
	Public     bool
}

// Item is a named entry inside a folder holding one or more files.
type Item struct {
	ID       string
	Name     string
	FolderID string
	Size     int64
	Meta     Metadata
}

// File is the binary content handle underlying an item.
type File struct {
	ID       string
	Name     string
	ItemID   string
	Size     int64
	MimeType string
}

// Raw response shapes. Callers only see the normalized types above.

type collectionResponse struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	ModelType string `json:"_modelType"`
	Public    bool   `json:"public"`
	Size      int64  `json:"size"`
}

type folderResponse struct {
	ID               string `json:"_id"`
	Name             string `json:"name"`
	ModelType        string `json:"_modelType"`
	ParentID         string `json:"parentId"`
	ParentCollection string `json:"parentCollection"`
	Public           bool   `json:"public"`
}

type itemResponse struct {
	ID        string   `json:"_id"`
	Name      string   `json:"name"`
	ModelType string   `json:"_modelType"`
	FolderID  string   `json:"folderId"`
	Size      int64    `json:"size"`
	Meta      Metadata `json:"meta"`
}

type fileResponse struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	ModelType string `json:"_modelType"`
	ItemID    string `json:"itemId"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
}

// uploadResponse covers both documents the upload endpoints can return: an
// in-progress upload record, or the finished file once all bytes arrived.
type uploadResponse struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	ModelType string `json:"_modelType"`
	ItemID    string `json:"itemId"`
	Size      int64  `json:"size"`
	Received  int64  `json:"received"`
	MimeType  string `json:"mimeType"`
}

type tokenResponse struct {
	AuthToken struct {
		Token   string `json:"token"`
		Expires string `json:"expires"`
	} `json:"authToken"`
}

func (r *collectionResponse) toCollection() Collection {
	return Collection{ID: r.ID, Name: r.Name, Public: r.Public, Size: r.Size}
}

func (r *folderResponse) toFolder() Folder {
	pt := ParentType(r.ParentCollection)
	if pt == "" {
		pt = ParentFolder
	}

	return Folder{
		ID:         r.ID,
		Name:       r.Name,
		ParentID:   r.ParentID,
		ParentType: pt,
		Public:     r.Public,
	}
}

func (r *itemResponse) toItem() Item {
	meta := r.Meta
	if meta == nil {
		meta = Metadata{}
	}

	return Item{ID: r.ID, Name: r.Name, FolderID: r.FolderID, Size: r.Size, Meta: meta}
}

func (r *fileResponse) toFile() File {
	return File{ID: r.ID, Name: r.Name, ItemID: r.ItemID, Size: r.Size, MimeType: r.MimeType}
}

// isFile reports whether the upload endpoint returned the finished file.
func (r *uploadResponse) isFile() bool {
	return r.ModelType == "file"
}

func (r *uploadResponse) toFile() File {
	return File{ID: r.ID, Name: r.Name, ItemID: r.ItemID, Size: r.Size, MimeType: r.MimeType}
}
