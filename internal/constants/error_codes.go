package constants

const (
	// Shared REST/WS transport-agnostic errors
	ErrCodeAuthFailed      = "AUTH_FAILED"
	ErrCodeAuthExpired     = "AUTH_EXPIRED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeInternal        = "INTERNAL_ERROR"

	// Scan / unlock domain errors
	ErrCodeInvalidPayload   = "INVALID_PAYLOAD"
	ErrCodeUnknownCode      = "UNKNOWN_CODE"
	ErrCodeInactiveCode     = "INACTIVE_CODE"
	ErrCodeCodeNotYetActive = "CODE_NOT_YET_ACTIVE"
	ErrCodeCodeExpired      = "CODE_EXPIRED"
	ErrCodeStorage          = "STORAGE_ERROR"
)
