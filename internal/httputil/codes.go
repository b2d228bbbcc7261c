package httputil

// Machine-readable error codes returned in ErrorResponse.Code
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeNotFound           = "NOT_FOUND"

	CodeMissingAuth       = "MISSING_AUTH"
	CodeInvalidAuthHeader = "INVALID_AUTH_HEADER"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeForbidden         = "FORBIDDEN"
	CodeRoleRequired      = "ROLE_REQUIRED"

	CodeEmailRequired      = "EMAIL_REQUIRED"
	CodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	CodeInvalidUserID      = "INVALID_USER_ID"
	CodeRoleNotAllowed     = "ROLE_NOT_ALLOWED"
	CodeRoleMissing        = "ROLE_MISSING"

	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeGatewayError        = "PAYMENT_GATEWAY_ERROR"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	CodeIntentNotSettled    = "PAYMENT_NOT_SETTLED"
	CodeTransactionRequired = "TRANSACTION_ID_REQUIRED"
	CodeAlreadyRecorded     = "PAYMENT_ALREADY_RECORDED"
)
