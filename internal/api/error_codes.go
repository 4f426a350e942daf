// internal/api/error_codes.go
package api

// API error codes
const (
	// generic
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// drafts and form
	ErrorDraftNotFound    = "DRAFT_NOT_FOUND"
	ErrorValidation       = "VALIDATION_ERROR"
	ErrorFileUploadFailed = "FILE_UPLOAD_FAILED"

	// generation
	ErrorAPIKeyMissing         = "API_KEY_MISSING"
	ErrorGenerationFailed      = "GENERATION_FAILED"
	ErrorGenerationInFlight    = "GENERATION_IN_FLIGHT"
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"

	// export
	ErrorExportFailed        = "EXPORT_FAILED"
	ErrorExportFormatInvalid = "EXPORT_FORMAT_INVALID"
)
