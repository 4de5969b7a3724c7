// Package errutils provides the error handling system for the opendata client.
// It defines the sentinel errors shared by the catalog, resolver, filter, download,
// verification and directory listing layers, helpers for wrapping them with context,
// and the mapping from an error to the process exit code.
//
// Errors are always wrapped with %w so callers can classify them with errors.Is
// regardless of how much context was added on the way up.
package errutils

import (
	"errors"
	"fmt"
)

// Input validation errors. These are surfaced before any network call is made.
var (
	ErrValidation = fmt.Errorf("validation failed")

	// ErrInvalidRange is returned for malformed or out-of-bounds --filter-range values.
	ErrInvalidRange = fmt.Errorf("invalid range")

	// ErrMissingIdentifier is returned when neither a recid, a DOI nor a title was given.
	ErrMissingIdentifier = fmt.Errorf("please provide at least one of following arguments: (recid, doi, title)")
)

// Catalog errors.
var (
	// ErrNotFound is returned when a search yields no record, or a metadata field is missing.
	ErrNotFound = fmt.Errorf("not found")

	// ErrAmbiguousRecord is returned when a title or DOI search yields more than one record.
	ErrAmbiguousRecord = fmt.Errorf("ambiguous record")

	// ErrInvalidRecord is returned when the catalog rejects a record ID.
	ErrInvalidRecord = fmt.Errorf("the record ID number you supplied is not valid")

	// ErrTransport is returned when the catalog cannot be reached or answers unexpectedly.
	ErrTransport = fmt.Errorf("catalog request failed")

	// ErrRecordSearch tags failures that came out of a title or DOI lookup.
	ErrRecordSearch = fmt.Errorf("record search")

	// ErrInvalidFilter is returned for a get-metadata --filter that is not field=value.
	ErrInvalidFilter = fmt.Errorf("invalid filter format. Use --filter some_field_name=some_value")
)

// Download errors.
var (
	// ErrEngineUnavailable is returned when the requested transfer engine is not installed.
	ErrEngineUnavailable = fmt.Errorf("download engine not available")

	// ErrIncompatibleEngine is returned when the requested engine cannot serve the protocol.
	ErrIncompatibleEngine = fmt.Errorf("download engine incompatible with protocol")

	// ErrUnknownEngine is returned for an engine name that is not recognised.
	ErrUnknownEngine = fmt.Errorf("unknown download engine")

	// ErrTransientDownload marks a transfer that produced the server error page.
	ErrTransientDownload = fmt.Errorf("server returned an error page")

	// ErrRetriesExhausted is returned once the retry limit for a file is used up.
	ErrRetriesExhausted = fmt.Errorf("download retries exhausted")

	// ErrDownloadFailed is returned when a transfer fails outright.
	ErrDownloadFailed = fmt.Errorf("download failed")

	// ErrNoMatchingFiles is returned when filters were given but selected nothing.
	ErrNoMatchingFiles = fmt.Errorf("no files matching the filters")
)

// Verification errors.
var (
	ErrVerification     = fmt.Errorf("verification failed")
	ErrCountMismatch    = fmt.Errorf("%w: number of files does not match", ErrVerification)
	ErrSizeMismatch     = fmt.Errorf("%w: file size does not match", ErrVerification)
	ErrChecksumMismatch = fmt.Errorf("%w: file checksum does not match", ErrVerification)
	ErrNoLocalFiles     = fmt.Errorf("no local files found")
)

// Directory listing errors.
var (
	ErrDirectoryNotFound = fmt.Errorf("directory does not exist")
	ErrWalkTimeout       = fmt.Errorf("command timed out, please provide more specific path")
	ErrEmptyDirectory    = fmt.Errorf("no files in the directory")
)

// Config errors are related to configuration file operations and validation.
var (
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")

	// ErrConfigValidation is returned when configuration values fail validation.
	ErrConfigValidation = fmt.Errorf("invalid configuration")

	ErrConfigEncode     = fmt.Errorf("failed to encode config")
	ErrConfigDirectory  = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate = fmt.Errorf("failed to create config file")
	ErrConfigFileRename = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileChmod  = fmt.Errorf("failed to set config file permissions")
	ErrConfigMarshal    = fmt.Errorf("failed to marshal config to YAML")

	// ErrConfigFileExists is returned when attempting to create a configuration file that already exists.
	ErrConfigFileExists = fmt.Errorf("configuration file already exists (use --force to overwrite)")

	ErrUnknownConfigKey    = fmt.Errorf("unknown configuration key")
	ErrInvalidOutputFormat = fmt.Errorf("invalid output format")
	ErrInvalidLogLevel     = fmt.Errorf("invalid log level")
	ErrInvalidProtocol     = fmt.Errorf("invalid protocol")
	ErrInvalidServer       = fmt.Errorf("server should be a valid URL")
	ErrNegativeDuration    = fmt.Errorf("duration cannot be negative")
	ErrNegativeRetryLimit  = fmt.Errorf("retry_limit cannot be negative")
)

// ErrVersionTooOld is returned by version --check-min when the build is older than required.
var ErrVersionTooOld = fmt.Errorf("client version is too old")

// Exit codes returned by the command line client.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitAmbiguous = 3
)

// Wrap wraps an error with additional context.
// If the error is nil, Wrap returns nil.
//
// Example:
//
//	if err := someOperation(); err != nil {
//	    return errutils.Wrap(err, "failed to perform operation")
//	}
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
// If the error is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrAmbiguousRecord):
		return ExitAmbiguous
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrInvalidServer),
		errors.Is(err, ErrWalkTimeout),
		errors.Is(err, ErrEmptyDirectory):
		return ExitUsage
	case errors.Is(err, ErrNotFound) && errors.Is(err, ErrRecordSearch):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// ErrRecordNotFoundWithField creates the error for a search that matched no record.
func ErrRecordNotFoundWithField(field string) error {
	return fmt.Errorf("record with given %s does not exist: %w", field, errors.Join(ErrNotFound, ErrRecordSearch))
}

// ErrAmbiguousRecordWithField creates the error for a search that matched several records.
func ErrAmbiguousRecordWithField(field string) error {
	return fmt.Errorf("more than one record fit this %s, this should not happen: %w", field, ErrAmbiguousRecord)
}

// ErrSizeMismatchWithDetails reports the expected and found size of a file.
func ErrSizeMismatchWithDetails(name string, expected, found int64) error {
	return fmt.Errorf("%s: expected size %d, found %d: %w", name, expected, found, ErrSizeMismatch)
}

// ErrChecksumMismatchWithDetails reports the expected and found checksum of a file.
func ErrChecksumMismatchWithDetails(name, expected, found string) error {
	return fmt.Errorf("%s: expected checksum %s, found %s: %w", name, expected, found, ErrChecksumMismatch)
}

// ErrFieldNotPresent reports a metadata field that does not exist.
func ErrFieldNotPresent(field string) error {
	return fmt.Errorf("field '%s' is not present in metadata: %w", field, ErrNotFound)
}

// ErrNoObjectsFound reports a metadata filter that matched nothing.
func ErrNoObjectsFound(field, value string) error {
	return fmt.Errorf("no objects found with %s=%s: %w", field, value, ErrNotFound)
}

// ErrCountMismatchWithDetails reports the expected and found number of files.
func ErrCountMismatchWithDetails(expected, found int) error {
	return fmt.Errorf("expected %d files, found %d: %w", expected, found, ErrCountMismatch)
}

// ErrInvalidOutputFormatWithDetails is a helper to create a wrapped error with the invalid format and valid options.
func ErrInvalidOutputFormatWithDetails(format string) error {
	return fmt.Errorf("%w: '%s', must be one of: text, json, yaml", ErrInvalidOutputFormat, format)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: error, warn, info, debug", ErrInvalidLogLevel, level)
}

// ErrInvalidProtocolWithDetails is a helper to create a wrapped error with the invalid protocol.
func ErrInvalidProtocolWithDetails(protocol string) error {
	return fmt.Errorf("%w: '%s', must be one of: http, xrootd", ErrInvalidProtocol, protocol)
}
