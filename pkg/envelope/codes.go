package envelope

// Result codes returned by the community backend in the envelope "code" field.
const (
	CodeSuccess       = "SUCCESS"
	CodeCreated       = "CREATED"
	CodeUpdated       = "UPDATED"
	CodeDeleted       = "DELETED"
	CodeLoginSuccess  = "LOGIN_SUCCESS"
	CodeSignupSuccess = "SIGNUP_SUCCESS"
	CodeLogoutSuccess = "LOGOUT_SUCCESS"

	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidSession      = "INVALID_SESSION"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeConflict            = "CONFLICT"
	CodeTooManyRequest      = "TOO_MANY_REQUEST"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"

	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeValidationError    = "VALIDATION_ERROR"

	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeAlreadyLogin  = "ALREADY_LOGIN"

	CodeUserNotFound    = "USER_NOT_FOUND"
	CodePostNotFound    = "POST_NOT_FOUND"
	CodeCommentNotFound = "COMMENT_NOT_FOUND"

	CodePostAlreadyLiked   = "POST_ALREADY_LIKED"
	CodePostAlreadyUnliked = "POST_ALREADY_UNLIKED"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)
