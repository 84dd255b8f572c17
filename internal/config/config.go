// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for girder-upload. Values pass through a
// four-layer override chain: defaults -> config file -> environment -> CLI
// flags.
package config

import "time"

// Config is the top-level structure parsed from the TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Destination DestinationConfig `toml:"destination"`
	Transfer    TransferConfig    `toml:"transfer"`
	Logging     LoggingConfig     `toml:"logging"`
	Journal     JournalConfig     `toml:"journal"`
	Watch       WatchConfig       `toml:"watch"`
}

// ServerConfig locates and authenticates against the Girder API.
type ServerConfig struct {
	APIURL  string `toml:"api_url"`
	APIKey  string `toml:"api_key"`
	Timeout string `toml:"timeout"` // "0" disables
}

// DestinationConfig selects where uploads land. root_folder_id supersedes
// collection_name and root_folder_path.
type DestinationConfig struct {
	CollectionName string `toml:"collection_name"`
	RootFolderPath string `toml:"root_folder_path"`
	RootFolderID   string `toml:"root_folder_id"`
	PublicFolders  bool   `toml:"public_folders"`
}

// TransferConfig sizes the upload chunks and local hash reads.
type TransferConfig struct {
	UploadChunkSize string `toml:"upload_chunk_size"`
	HashChunkSize   string `toml:"hash_chunk_size"`
}

// LoggingConfig controls log level and handler.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// JournalConfig controls the local upload journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // empty = DefaultJournalPath()
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	SettleTime string `toml:"settle_time"`
}

// CLIOverrides holds flag values. Pointer fields distinguish "not given"
// (nil) from an explicit empty value.
type CLIOverrides struct {
	ConfigPath     string
	APIURL         *string
	APIKey         *string
	RootFolderID   *string
	CollectionName *string
	RootFolderPath *string
	Journal        *bool
	LogFormat      *string
}

// Resolved is the effective configuration after every layer was applied,
// with durations and sizes parsed.
type Resolved struct {
	ConfigPath string
	FileLoaded bool

	APIURL  string
	APIKey  string
	Timeout time.Duration

	RootFolderID   string
	CollectionName string
	RootFolderPath string
	PublicFolders  bool

	UploadChunkSize int64
	HashChunkSize   int

	LogLevel  string
	LogFormat string

	JournalEnabled bool
	JournalPath    string

	SettleTime time.Duration
}
