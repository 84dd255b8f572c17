package main

import (
	"github.com/spf13/cobra"

	"github.com/imqcam/girder-upload/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

// configJSON is the JSON output schema for config show. The API key is
// reduced to whether one is set.
type configJSON struct {
	ConfigPath      string `json:"config_path"`
	FileLoaded      bool   `json:"file_loaded"`
	APIURL          string `json:"api_url"`
	APIKeySet       bool   `json:"api_key_set"`
	Timeout         string `json:"timeout"`
	RootFolderID    string `json:"root_folder_id,omitempty"`
	CollectionName  string `json:"collection_name,omitempty"`
	RootFolderPath  string `json:"root_folder_path,omitempty"`
	PublicFolders   bool   `json:"public_folders"`
	UploadChunkSize int64  `json:"upload_chunk_size"`
	HashChunkSize   int    `json:"hash_chunk_size"`
	LogLevel        string `json:"log_level"`
	LogFormat       string `json:"log_format"`
	JournalEnabled  bool   `json:"journal_enabled"`
	JournalPath     string `json:"journal_path"`
	SettleTime      string `json:"settle_time"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	r := cc.Cfg

	if !cc.Flags.JSON {
		return config.RenderEffective(r, cc.Stdout)
	}

	return printJSON(cc.Stdout, configJSON{
		ConfigPath:      r.ConfigPath,
		FileLoaded:      r.FileLoaded,
		APIURL:          r.APIURL,
		APIKeySet:       r.APIKey != "",
		Timeout:         r.Timeout.String(),
		RootFolderID:    r.RootFolderID,
		CollectionName:  r.CollectionName,
		RootFolderPath:  r.RootFolderPath,
		PublicFolders:   r.PublicFolders,
		UploadChunkSize: r.UploadChunkSize,
		HashChunkSize:   r.HashChunkSize,
		LogLevel:        r.LogLevel,
		LogFormat:       r.LogFormat,
		JournalEnabled:  r.JournalEnabled,
		JournalPath:     r.JournalPath,
		SettleTime:      r.SettleTime.String(),
	})
}
