// Package errors provides structured error handling for amanscout.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (history database, log files)
//   - 3XX: Network errors (search, language model, fetch, embedding)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates errors talking to an external collaborator.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input or response validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"
	ErrCodeMissingAPIKey    = "ERR_104_MISSING_API_KEY"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeHistoryFailed  = "ERR_203_HISTORY_FAILED"
	ErrCodeHistoryLocked  = "ERR_204_HISTORY_LOCKED"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeSearchFailed       = "ERR_303_SEARCH_FAILED"
	ErrCodeLLMFailed          = "ERR_304_LLM_FAILED"
	ErrCodeFetchFailed        = "ERR_305_FETCH_FAILED"
	ErrCodeBrowserFailed      = "ERR_306_BROWSER_FAILED"
	ErrCodeEmbeddingFailed    = "ERR_307_EMBEDDING_FAILED"
	ErrCodeModelPullFailed    = "ERR_308_MODEL_PULL_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidRequest    = "ERR_402_INVALID_REQUEST"
	ErrCodeMalformedResponse = "ERR_403_MALFORMED_RESPONSE"
	ErrCodeDimensionMismatch = "ERR_404_DIMENSION_MISMATCH"
	ErrCodeQueryEmpty        = "ERR_405_QUERY_EMPTY"
	ErrCodeContentRejected   = "ERR_406_CONTENT_REJECTED"

	// Internal errors (500-599)
	ErrCodeInternal          = "ERR_501_INTERNAL"
	ErrCodeCollectionExists  = "ERR_502_COLLECTION_EXISTS"
	ErrCodeCollectionMissing = "ERR_503_COLLECTION_MISSING"
	ErrCodeIndexFailed       = "ERR_504_INDEX_FAILED"
	ErrCodeChunkingFailed    = "ERR_505_CHUNKING_FAILED"
	ErrCodeOptimizeFailed    = "ERR_506_OPTIMIZE_FAILED"
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
	case ErrCodeInvalidRequest:
		return SeverityFatal
	case ErrCodeMalformedResponse, ErrCodeContentRejected:
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
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable, ErrCodeSearchFailed,
		ErrCodeFetchFailed, ErrCodeEmbeddingFailed, ErrCodeHistoryLocked:
		return true
	default:
		return false
	}
}
