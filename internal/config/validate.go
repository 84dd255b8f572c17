package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validation bounds.
const (
	// Girder rejects non-final chunks smaller than its minimum upload chunk.
	minUploadChunkBytes = 5 * mebibyte
	maxUploadChunkBytes = 1 * gibibyte
	minHashChunkBytes   = 4 * kibibyte
	maxHashChunkBytes   = 64 * mebibyte
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"auto", "text", "json", "color"}
)

// Validate checks all configuration values and returns every error found,
// so a user can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTransfer(&cfg.Transfer)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if _, err := parseDuration(cfg.Watch.SettleTime); err != nil {
		errs = append(errs, fmt.Errorf("watch.settle_time: %w", err))
	}

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	u, err := url.Parse(s.APIURL)

	switch {
	case s.APIURL == "":
		errs = append(errs, errors.New("server.api_url: must not be empty"))
	case err != nil:
		errs = append(errs, fmt.Errorf("server.api_url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("server.api_url: scheme must be http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("server.api_url: missing host in %q", s.APIURL))
	}

	if d, err := parseDuration(s.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("server.timeout: %w", err))
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("server.timeout: must not be negative, got %q", s.Timeout))
	}

	return errs
}

func validateTransfer(t *TransferConfig) []error {
	var errs []error

	if err := checkSize("transfer.upload_chunk_size", t.UploadChunkSize,
		minUploadChunkBytes, maxUploadChunkBytes); err != nil {
		errs = append(errs, err)
	}

	if err := checkSize("transfer.hash_chunk_size", t.HashChunkSize,
		minHashChunkBytes, maxHashChunkBytes); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func checkSize(field, value string, lo, hi int64) error {
	n, err := ParseSize(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}

	if n < lo || n > hi {
		return fmt.Errorf("%s: must be between %d and %d bytes, got %q", field, lo, hi, value)
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !oneOf(l.LogLevel, validLogLevels) {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of %s, got %q",
			strings.Join(validLogLevels, ", "), l.LogLevel))
	}

	if !oneOf(l.LogFormat, validLogFormats) {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of %s, got %q",
			strings.Join(validLogFormats, ", "), l.LogFormat))
	}

	return errs
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}

	return false
}
