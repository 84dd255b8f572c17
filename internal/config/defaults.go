package config

// Layer 0 of the override chain.
const (
	DefaultAPIURL          = "https://data.imqcam.org/api/v1"
	DefaultCollectionName  = "Test"
	DefaultRootFolderPath  = "Test"
	defaultTimeout         = "0"
	defaultUploadChunkSize = "32MiB"
	defaultHashChunkSize   = "64KiB"
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultSettleTime      = "2s"
)

// DefaultConfig returns a Config populated with default values. It is the
// starting point for TOML decoding, so unset fields keep their defaults.
// The destination is left empty; Resolve fills in the default collection
// only when no destination was chosen at any layer.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			APIURL:  DefaultAPIURL,
			Timeout: defaultTimeout,
		},
		Destination: DestinationConfig{
			PublicFolders: true,
		},
		Transfer: TransferConfig{
			UploadChunkSize: defaultUploadChunkSize,
			HashChunkSize:   defaultHashChunkSize,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Watch: WatchConfig{
			SettleTime: defaultSettleTime,
		},
	}
}
