package services

import (
	"hamsafar_backend/internal/realtime"
	"hamsafar_backend/internal/services/dto"
)

// NotificationDispatcher раскладывает события чата по комнатам хаба.
// Доставка best-effort: ошибки отправки гасятся внутри хаба.
type NotificationDispatcher struct {
	broadcaster realtime.Broadcaster
}

// NewNotificationDispatcher принимает nil: тогда события никуда не уходят
// (например, при запуске миграций из CLI).
func NewNotificationDispatcher(broadcaster realtime.Broadcaster) *NotificationDispatcher {
	return &NotificationDispatcher{broadcaster: broadcaster}
}

// DispatchNewMessage: new_message в комнату переписки, затем notification
// в личную комнату каждого участника, кроме отправителя.
func (d *NotificationDispatcher) DispatchNewMessage(message *dto.MessageResponse, participantIDs []string) {
	if d == nil || d.broadcaster == nil || message == nil {
		return
	}

	d.broadcaster.BroadcastToRoom(realtime.ConversationRoom(message.ConversationID), realtime.EventNewMessage, message)

	notification := realtime.NotificationPayload{
		Type:    realtime.NotificationTypeMessage,
		Message: "New message from " + senderName(message),
		Data:    message,
	}
	for _, userID := range participantIDs {
		if userID == message.SenderID {
			continue
		}
		d.broadcaster.BroadcastToRoom(realtime.UserRoom(userID), realtime.EventNotification, notification)
	}
}

func (d *NotificationDispatcher) DispatchMessagesRead(payload realtime.MessagesReadPayload) {
	if d == nil || d.broadcaster == nil {
		return
	}
	d.broadcaster.BroadcastToRoom(realtime.ConversationRoom(payload.ConversationID), realtime.EventMessagesRead, payload)
}

func (d *NotificationDispatcher) DispatchMessageRead(payload realtime.MessageReadPayload) {
	if d == nil || d.broadcaster == nil {
		return
	}
	d.broadcaster.BroadcastToRoom(realtime.ConversationRoom(payload.ConversationID), realtime.EventMessageRead, payload)
}

func senderName(message *dto.MessageResponse) string {
	if message.Sender != nil && message.Sender.Name != "" {
		return message.Sender.Name
	}
	return "a fellow traveller"
}
