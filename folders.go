package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imqcam/girder-upload/internal/errkind"
	"github.com/imqcam/girder-upload/internal/remotepath"
)

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder path below the destination root",
		Long: `Resolve a slash-separated folder path below the destination root,
creating every missing folder. The configured root folder path must already
exist.`,
		Args: cobra.ExactArgs(1),
		RunE: runMkdir,
	}
}

func newFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <path>",
		Short: "Print the item and file IDs of a remote path",
		Args:  cobra.ExactArgs(1),
		RunE:  runFind,
	}
}

func newRmdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir <path>",
		Short: "Delete a folder and everything below it",
		Long: `Delete a folder below the destination root, including every folder and
item inside it. The root itself cannot be removed.`,
		Args: cobra.ExactArgs(1),
		RunE: runRmdir,
	}
}

func runMkdir(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	s, err := NewSession(ctx, cc)
	if err != nil {
		return err
	}
	defer s.Close()

	root, rootSegs, all, err := s.target(args[0])
	if err != nil {
		return err
	}

	r := s.Uploader.Resolver()

	if _, err := r.ResolveFolder(ctx, root, rootSegs, false); err != nil {
		return err
	}

	folder, err := r.ResolveFolder(ctx, root, all, true)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, map[string]string{"path": remotepath.Join(all), "folder_id": folder.ID})
	}

	fmt.Fprintf(cc.Stdout, "%s\t%s\n", folder.ID, remotepath.Join(all))

	return nil
}

// findJSON is the JSON output schema for find.
type findJSON struct {
	Path     string `json:"path"`
	ItemID   string `json:"item_id"`
	FileID   string `json:"file_id"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

func runFind(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	s, err := NewSession(ctx, cc)
	if err != nil {
		return err
	}
	defer s.Close()

	root, _, all, err := s.target(args[0])
	if err != nil {
		return err
	}

	item, file, err := s.Uploader.Resolver().ResolveItemAndFile(ctx, root, all)
	if err != nil {
		return err
	}

	out := findJSON{
		Path:     remotepath.Join(all),
		ItemID:   item.ID,
		FileID:   file.ID,
		Size:     file.Size,
		MimeType: file.MimeType,
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, out)
	}

	printTable(cc.Stdout, []string{"PATH", "ITEM", "FILE", "SIZE", "TYPE"}, [][]string{
		{out.Path, out.ItemID, out.FileID, formatSize(out.Size), out.MimeType},
	})

	return nil
}

func runRmdir(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	if len(remotepath.Split(args[0])) == 0 {
		return fmt.Errorf("rmdir: refusing to delete the destination root: %w", errkind.ErrInvalidArgument)
	}

	s, err := NewSession(ctx, cc)
	if err != nil {
		return err
	}
	defer s.Close()

	root, _, all, err := s.target(args[0])
	if err != nil {
		return err
	}

	folder, err := s.Uploader.Resolver().ResolveFolder(ctx, root, all, false)
	if err != nil {
		return err
	}

	if err := s.Remote.DeleteFolder(ctx, folder.ID); err != nil {
		return fmt.Errorf("deleting %s: %w", remotepath.Join(all), err)
	}

	cc.Statusf("Deleted %s\n", remotepath.Join(all))

	return nil
}
