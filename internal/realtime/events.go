// Package realtime описывает протокол сокетов: имена событий, комнаты и полезные нагрузки.
// Пакет листовой, его импортируют и сервисы, и ws-хаб.
package realtime

//go:generate go run go.uber.org/mock/mockgen -source=events.go -destination=../mocks/mock_broadcaster.go -package=mocks

import (
	"encoding/json"
	"time"
)

// Входящие события (клиент -> сервер)
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventJoinUserRoom      = "join_user_room"
	EventTyping            = "typing"
	EventStopTyping        = "stop_typing"
	EventMarkAsRead        = "mark_as_read"
	EventSendMessage       = "send_message"
)

// Исходящие события (сервер -> клиент). typing/stop_typing идут в обе стороны.
const (
	EventNewMessage   = "new_message"
	EventNotification = "notification"
	EventMessagesRead = "messages_read"
	EventMessageRead  = "message_read"
	EventJoined       = "joined"
	EventError        = "error"
)

const NotificationTypeMessage = "message"

// Envelope - кадр сокета: {"event": "...", "data": {...}}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Broadcaster - доставка события всем соединениям комнаты.
// Доставка best-effort: офлайн-пользователи ничего не получают.
type Broadcaster interface {
	BroadcastToRoom(room, event string, payload any)
}

func ConversationRoom(conversationID string) string {
	return "conversation:" + conversationID
}

func UserRoom(userID string) string {
	return "user:" + userID
}

// ============================================
// Payloads
// ============================================

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

type NotificationPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// MessagesReadPayload - пользователь прочитал переписку целиком.
// MessageIDs - сообщения, у которых к моменту события есть квитанция читателя.
// Часть из них могла отметить параллельная отметка того же читателя.
type MessagesReadPayload struct {
	ConversationID string    `json:"conversationId"`
	ReaderID       string    `json:"readerId"`
	MessageIDs     []string  `json:"messageIds"`
	ReadAt         time.Time `json:"readAt"`
}

// MessageReadPayload - квитанция по одному сообщению.
type MessageReadPayload struct {
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	UserID         string    `json:"userId"`
	ReadAt         time.Time `json:"readAt"`
}

type JoinedPayload struct {
	Room string `json:"room"`
}

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
