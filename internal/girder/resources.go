package girder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// unlimited asks Girder list endpoints to return every match in one page.
const unlimited = "0"

// ListCollections returns every collection visible to the caller.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	c.logger.Debug("listing collections")

	var raw []collectionResponse
	if err := c.doInto(ctx, http.MethodGet, "/collection", map[string]string{"limit": unlimited}, nil, &raw); err != nil {
		return nil, err
	}

	out := make([]Collection, 0, len(raw))
	for i := range raw {
		out = append(out, raw[i].toCollection())
	}

	return out, nil
}

// ListFolders lists folders under a parent. A non-empty name filters to
// folders with exactly that name.
func (c *Client) ListFolders(ctx context.Context, parentType ParentType, parentID, name string) ([]Folder, error) {
	c.logger.Debug("listing folders",
		slog.String("parent_type", string(parentType)),
		slog.String("parent_id", parentID),
		slog.String("name", name),
	)

	query := map[string]string{
		"parentType": string(parentType),
		"parentId":   parentID,
		"limit":      unlimited,
	}
	if name != "" {
		query["name"] = name
	}

	var raw []folderResponse
	if err := c.doInto(ctx, http.MethodGet, "/folder", query, nil, &raw); err != nil {
		return nil, err
	}

	out := make([]Folder, 0, len(raw))
	for i := range raw {
		out = append(out, raw[i].toFolder())
	}

	return out, nil
}

// CreateFolder creates a folder under a parent.
func (c *Client) CreateFolder(
	ctx context.Context, parentType ParentType, parentID, name string, public bool,
) (*Folder, error) {
	c.logger.Info("creating folder",
		slog.String("parent_type", string(parentType)),
		slog.String("parent_id", parentID),
		slog.String("name", name),
		slog.Bool("public", public),
	)

	query := map[string]string{
		"parentType":    string(parentType),
		"parentId":      parentID,
		"name":          name,
		"public":        strconv.FormatBool(public),
		"reuseExisting": "false",
	}

	var raw folderResponse
	if err := c.doInto(ctx, http.MethodPost, "/folder", query, nil, &raw); err != nil {
		return nil, err
	}

	f := raw.toFolder()

	return &f, nil
}

// DeleteFolder deletes a folder and everything below it.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	c.logger.Info("deleting folder", slog.String("folder_id", folderID))

	_, err := c.do(ctx, http.MethodDelete, "/folder/"+url.PathEscape(folderID), nil, nil)

	return err
}

// ListItems lists items in a folder. A non-empty name filters to items with
// exactly that name.
func (c *Client) ListItems(ctx context.Context, folderID, name string) ([]Item, error) {
	c.logger.Debug("listing items",
		slog.String("folder_id", folderID),
		slog.String("name", name),
	)

	query := map[string]string{"folderId": folderID, "limit": unlimited}
	if name != "" {
		query["name"] = name
	}

	var raw []itemResponse
	if err := c.doInto(ctx, http.MethodGet, "/item", query, nil, &raw); err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(raw))
	for i := range raw {
		out = append(out, raw[i].toItem())
	}

	return out, nil
}

// CreateItem creates an item in a folder. With reuseExisting the server
// returns the existing item of the same name instead of creating a sibling.
func (c *Client) CreateItem(ctx context.Context, folderID, name string, reuseExisting bool) (*Item, error) {
	c.logger.Info("creating item",
		slog.String("folder_id", folderID),
		slog.String("name", name),
		slog.Bool("reuse_existing", reuseExisting),
	)

	query := map[string]string{
		"folderId":      folderID,
		"name":          name,
		"reuseExisting": strconv.FormatBool(reuseExisting),
	}

	var raw itemResponse
	if err := c.doInto(ctx, http.MethodPost, "/item", query, nil, &raw); err != nil {
		return nil, err
	}

	it := raw.toItem()

	return &it, nil
}

// GetItem fetches a single item including its metadata.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	c.logger.Debug("getting item", slog.String("item_id", itemID))

	var raw itemResponse
	if err := c.doInto(ctx, http.MethodGet, "/item/"+url.PathEscape(itemID), nil, nil, &raw); err != nil {
		return nil, err
	}

	it := raw.toItem()

	return &it, nil
}

// ListFiles lists the files attached to an item.
func (c *Client) ListFiles(ctx context.Context, itemID string) ([]File, error) {
	c.logger.Debug("listing files", slog.String("item_id", itemID))

	var raw []fileResponse

	path := fmt.Sprintf("/item/%s/files", url.PathEscape(itemID))
	if err := c.doInto(ctx, http.MethodGet, path, map[string]string{"limit": unlimited}, nil, &raw); err != nil {
		return nil, err
	}

	out := make([]File, 0, len(raw))
	for i := range raw {
		out = append(out, raw[i].toFile())
	}

	return out, nil
}

// DeleteFile deletes a single file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	c.logger.Info("deleting file", slog.String("file_id", fileID))

	_, err := c.do(ctx, http.MethodDelete, "/file/"+url.PathEscape(fileID), nil, nil)

	return err
}
