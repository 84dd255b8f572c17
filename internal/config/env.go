package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for overrides.
const (
	EnvConfig = "GIRDER_UPLOAD_CONFIG"
	EnvAPIKey = "IMQCAM_API_KEY"
	EnvAPIURL = "IMQCAM_API_URL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // GIRDER_UPLOAD_CONFIG
	APIKey     string // IMQCAM_API_KEY
	APIURL     string // IMQCAM_API_URL
}

// ReadEnvOverrides reads the override variables from the environment.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		APIKey:     os.Getenv(EnvAPIKey),
		APIURL:     os.Getenv(EnvAPIURL),
	}
}

// LoadDotEnv copies KEY=VALUE pairs from a .env file into the process
// environment. Variables that are already set win. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}
