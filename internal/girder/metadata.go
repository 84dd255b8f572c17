package girder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// ReplaceItemMetadata makes meta the item's complete metadata. Girder's
// metadata endpoint merges keys, so keys present on the item but absent from
// meta are sent as null, which the server treats as a deletion.
func (c *Client) ReplaceItemMetadata(ctx context.Context, itemID string, meta Metadata) (*Item, error) {
	current, err := c.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("girder: reading metadata of item %s: %w", itemID, err)
	}

	body := make(map[string]any, len(meta)+len(current.Meta))
	for k := range current.Meta {
		if _, keep := meta[k]; !keep {
			body[k] = nil
		}
	}

	for k, v := range meta {
		body[k] = v
	}

	c.logger.Info("setting item metadata",
		slog.String("item_id", itemID),
		slog.Int("keys", len(meta)),
		slog.Int("removed", len(body)-len(meta)),
	)

	path := fmt.Sprintf("/item/%s/metadata", url.PathEscape(itemID))

	var raw itemResponse
	if err := c.doInto(ctx, http.MethodPut, path, nil, body, &raw); err != nil {
		return nil, err
	}

	it := raw.toItem()

	return &it, nil
}
