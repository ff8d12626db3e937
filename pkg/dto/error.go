package dto

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	ErrorCode  string   `json:"errorCode"`
	Errors     []string `json:"errors,omitempty"`
}

const (
	CodeBadRequest                 = "BAD_REQUEST"
	CodeValidation                 = "VALIDATION_ERROR"
	CodeValidationPasswordMismatch = "VALIDATION_PASSWORD_MISMATCH"
	CodeInvalidResetToken          = "INVALID_RESET_TOKEN"
	CodeUnauthorized               = "UNAUTHORIZED"
	CodeInvalidCredentials         = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidPassword            = "AUTH_INVALID_PASSWORD"
	CodeForbidden                  = "FORBIDDEN"
	CodeNotFound                   = "NOT_FOUND"
	CodeConflict                   = "CONFLICT"
	CodeConflictEmail              = "CONFLICT_EMAIL"
	CodeConflictUsername           = "CONFLICT_USERNAME"
	CodeRateLimited                = "RATE_LIMITED"
	CodeInternal                   = "INTERNAL_ERROR"
	CodeDatabase                   = "DATABASE_ERROR"
)

type MessageResponse struct {
	Message string `json:"message"`
}
