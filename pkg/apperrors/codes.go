package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeUnknownError  ErrorCode = "UNKNOWN_ERROR"

	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Аутентификация и Авторизация
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Коды чата
const (
	CodeInvalidParticipants  ErrorCode = "INVALID_PARTICIPANTS"
	CodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	CodeNotAParticipant      ErrorCode = "NOT_A_PARTICIPANT"
	CodeEmptyText            ErrorCode = "EMPTY_TEXT"
	CodeMessageNotFound      ErrorCode = "MESSAGE_NOT_FOUND"
	CodeUserNotFound         ErrorCode = "USER_NOT_FOUND"
	CodeStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"
)
