package apperrors

import (
	"net/http"
)

// =========================================================================
// Фабричные ФУНКЦИИ
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404)
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrStoreUnavailable - хранилище не ответило. Клиент может повторить запрос.
func ErrStoreUnavailable(err error) *AppError {
	return Wrap(err, CodeStoreUnavailable, "store", "Storage is temporarily unavailable", http.StatusServiceUnavailable)
}

// ErrInvalidParticipants - фабрика с пояснением, что именно не так с набором участников.
func ErrInvalidParticipants(message string) *AppError {
	return New(CodeInvalidParticipants, "chat", message, http.StatusBadRequest)
}

// =========================================================================
// Предопределенные ПЕРЕМЕННЫЕ
// =========================================================================

// --- Chat ---

var ErrTooFewParticipants = ErrInvalidParticipants("At least two distinct participants are required")

var ErrConversationNotFound = New(
	CodeConversationNotFound,
	"chat",
	"Conversation not found",
	http.StatusNotFound,
)

var ErrNotAParticipant = New(
	CodeNotAParticipant,
	"chat",
	"You are not a participant of this conversation",
	http.StatusForbidden,
)

var ErrEmptyText = New(
	CodeEmptyText,
	"chat",
	"Message text must not be empty",
	http.StatusBadRequest,
)

var ErrMessageNotFound = New(
	CodeMessageNotFound,
	"chat",
	"Message not found",
	http.StatusNotFound,
)

// ErrUserNotFound - один из участников отсутствует в таблице users.
var ErrUserNotFound = New(
	CodeUserNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)

// --- Auth ---

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)
