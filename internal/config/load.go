package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file and validates it. Unknown keys
// are fatal and come with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads path if it exists, otherwise returns the defaults.
// found reports whether a file was read.
func LoadOrDefault(path string) (cfg *Config, found bool, err error) {
	if path == "" {
		return DefaultConfig(), false, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), false, nil
	}

	cfg, err = Load(path)
	if err != nil {
		return nil, false, err
	}

	return cfg, true, nil
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, found, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.APIURL != "" {
		cfg.Server.APIURL = env.APIURL
	}

	if env.APIKey != "" {
		cfg.Server.APIKey = env.APIKey
	}

	applyCLI(cfg, &cli)
	applyDestinationDefaults(&cfg.Destination)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	r, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	r.ConfigPath = cfgPath
	r.FileLoaded = found

	return r, nil
}

func applyCLI(cfg *Config, cli *CLIOverrides) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	set(&cfg.Server.APIURL, cli.APIURL)
	set(&cfg.Server.APIKey, cli.APIKey)
	set(&cfg.Destination.RootFolderID, cli.RootFolderID)
	set(&cfg.Destination.CollectionName, cli.CollectionName)
	set(&cfg.Destination.RootFolderPath, cli.RootFolderPath)
	set(&cfg.Logging.LogFormat, cli.LogFormat)

	if cli.Journal != nil {
		cfg.Journal.Enabled = *cli.Journal
	}
}

// applyDestinationDefaults fills the collection name and root folder path
// independently when no root folder id was chosen.
func applyDestinationDefaults(d *DestinationConfig) {
	if d.RootFolderID != "" {
		return
	}

	if d.CollectionName == "" {
		d.CollectionName = DefaultCollectionName
	}

	if d.RootFolderPath == "" {
		d.RootFolderPath = DefaultRootFolderPath
	}
}

// resolve parses a validated Config into its effective values.
func resolve(cfg *Config) (*Resolved, error) {
	timeout, err := parseDuration(cfg.Server.Timeout)
	if err != nil {
		return nil, fmt.Errorf("server.timeout: %w", err)
	}

	settle, err := parseDuration(cfg.Watch.SettleTime)
	if err != nil {
		return nil, fmt.Errorf("watch.settle_time: %w", err)
	}

	upload, err := ParseSize(cfg.Transfer.UploadChunkSize)
	if err != nil {
		return nil, fmt.Errorf("transfer.upload_chunk_size: %w", err)
	}

	hash, err := ParseSize(cfg.Transfer.HashChunkSize)
	if err != nil {
		return nil, fmt.Errorf("transfer.hash_chunk_size: %w", err)
	}

	journalPath := cfg.Journal.Path
	if journalPath == "" {
		journalPath = DefaultJournalPath()
	}

	journalPath, err = expandHome(journalPath)
	if err != nil {
		return nil, fmt.Errorf("journal.path: %w", err)
	}

	return &Resolved{
		APIURL:          cfg.Server.APIURL,
		APIKey:          cfg.Server.APIKey,
		Timeout:         timeout,
		RootFolderID:    cfg.Destination.RootFolderID,
		CollectionName:  cfg.Destination.CollectionName,
		RootFolderPath:  cfg.Destination.RootFolderPath,
		PublicFolders:   cfg.Destination.PublicFolders,
		UploadChunkSize: upload,
		HashChunkSize:   int(hash),
		LogLevel:        cfg.Logging.LogLevel,
		LogFormat:       cfg.Logging.LogFormat,
		JournalEnabled:  cfg.Journal.Enabled,
		JournalPath:     journalPath,
		SettleTime:      settle,
	}, nil
}

// parseDuration accepts Go duration strings; "" and "0" mean zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}

	return time.ParseDuration(s)
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) (string, error) {
	if len(p) < 2 || p[:2] != "~/" {
		return p, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, p[2:]), nil
}
