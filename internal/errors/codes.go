// Package errors provides structured error handling for the ingestion pipeline.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (artifacts, locks)
//   - 3XX: Network errors (catalog, downloads, search engine)
//   - 4XX: Validation errors (malformed input)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates an unrecoverable error; the run must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the run can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo is informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"

	// IO errors (200-299)
	ErrCodeFileNotFound    = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission  = "ERR_202_FILE_PERMISSION"
	ErrCodeDiskFull        = "ERR_203_DISK_FULL"
	ErrCodeArtifactCorrupt = "ERR_204_ARTIFACT_CORRUPT"
	ErrCodeLockHeld        = "ERR_205_LOCK_HELD"
	ErrCodeWriteFailed     = "ERR_206_WRITE_FAILED"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeRateLimited        = "ERR_303_RATE_LIMITED"
	ErrCodeHTTPStatus         = "ERR_304_HTTP_STATUS"

	// Validation errors (400-499)
	ErrCodeInvalidInput  = "ERR_401_INVALID_INPUT"
	ErrCodeTextTooShort  = "ERR_402_TEXT_TOO_SHORT"
	ErrCodeMissingRaw    = "ERR_403_MISSING_RAW_TEXT"
	ErrCodeInvalidQuery  = "ERR_404_INVALID_QUERY"
	ErrCodeNoDownloadURL = "ERR_405_NO_DOWNLOAD_URL"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeSchemaFailed  = "ERR_502_SCHEMA_FAILED"
	ErrCodeSearchFailed  = "ERR_503_SEARCH_FAILED"
	ErrCodeSegmentFailed = "ERR_504_SEGMENT_FAILED"
	ErrCodeIndexFailed   = "ERR_505_INDEX_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeArtifactCorrupt, ErrCodeDiskFull, ErrCodeNetworkUnavailable, ErrCodeSchemaFailed, ErrCodeLockHeld:
		return SeverityFatal
	case ErrCodeTextTooShort, ErrCodeMissingRaw, ErrCodeNoDownloadURL:
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeRateLimited, ErrCodeHTTPStatus:
		return true
	default:
		return false
	}
}
