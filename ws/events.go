package ws

import (
	"encoding/json"

	"hamsafar_backend/internal/logger"
	"hamsafar_backend/internal/realtime"
	"hamsafar_backend/internal/services/dto"
	"hamsafar_backend/internal/validator"
	"hamsafar_backend/pkg/apperrors"
)

// conversationRef принимает и {"conversationId": "..."}, и просто строку id.
type conversationRef struct {
	ConversationID string `json:"conversationId" validate:"required,entity-id"`
}

func (r *conversationRef) UnmarshalJSON(data []byte) error {
	if id, ok := scalarID(data); ok {
		r.ConversationID = id
		return nil
	}
	type plain conversationRef
	return json.Unmarshal(data, (*plain)(r))
}

// userRef принимает и {"userId": "..."}, и просто строку id.
type userRef struct {
	UserID string `json:"userId" validate:"omitempty,entity-id"`
}

func (r *userRef) UnmarshalJSON(data []byte) error {
	if id, ok := scalarID(data); ok {
		r.UserID = id
		return nil
	}
	type plain userRef
	return json.Unmarshal(data, (*plain)(r))
}

func scalarID(data []byte) (string, bool) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", false
	}
	return id, true
}

// markAsReadInput: messageId отмечает одно сообщение, conversationId - всю переписку.
type markAsReadInput struct {
	ConversationID string `json:"conversationId" validate:"required_without=MessageID,entity-id"`
	MessageID      string `json:"messageId" validate:"omitempty,entity-id"`
}

// handleEvent - централизованный обработчик входящих событий.
// Ошибка уходит только этому соединению событием error.
func (c *Client) handleEvent(envelope realtime.Envelope) {
	var err error

	switch envelope.Event {
	case realtime.EventJoinConversation:
		err = c.onJoinConversation(envelope.Data)
	case realtime.EventLeaveConversation:
		err = c.onLeaveConversation(envelope.Data)
	case realtime.EventJoinUserRoom:
		err = c.onJoinUserRoom(envelope.Data)
	case realtime.EventTyping:
		err = c.onTyping(envelope.Data)
	case realtime.EventStopTyping:
		err = c.onStopTyping(envelope.Data)
	case realtime.EventMarkAsRead:
		err = c.onMarkAsRead(envelope.Data)
	case realtime.EventSendMessage:
		err = c.onSendMessage(envelope.Data)
	default:
		err = apperrors.NewBadRequestError("Unknown event: " + envelope.Event)
	}

	if err != nil {
		c.replyError(envelope.Event, err)
	}
}

func (c *Client) decode(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return apperrors.NewBadRequestError("Invalid event payload: " + err.Error())
	}
	if err := c.validator.Validate(dst); err != nil {
		if vErr, ok := err.(*validator.ValidationError); ok {
			return apperrors.ValidationError(vErr.Errors)
		}
		return apperrors.InternalError(err)
	}
	return nil
}

// ============================================
// Rooms
// ============================================

func (c *Client) onJoinConversation(data json.RawMessage) error {
	var in conversationRef
	if err := c.decode(data, &in); err != nil {
		return err
	}
	if err := c.chatService.CheckParticipant(c.db, in.ConversationID, c.UserID); err != nil {
		return err
	}

	room := realtime.ConversationRoom(in.ConversationID)
	if !c.manager.Join(c, room) {
		return nil
	}
	logger.CtxDebug(c.ctx, "Joined conversation room", "room", room)
	c.reply(realtime.EventJoined, realtime.JoinedPayload{Room: room})
	return nil
}

func (c *Client) onLeaveConversation(data json.RawMessage) error {
	var in conversationRef
	if err := c.decode(data, &in); err != nil {
		return err
	}
	c.stopTyping(in.ConversationID)
	c.manager.Leave(c, realtime.ConversationRoom(in.ConversationID))
	return nil
}

// onJoinUserRoom оставлен для старых клиентов: личная комната назначается при подключении.
// Чужую комнату занять нельзя.
func (c *Client) onJoinUserRoom(data json.RawMessage) error {
	var in userRef
	if err := c.decode(data, &in); err != nil {
		return err
	}
	if in.UserID != "" && in.UserID != c.UserID {
		return apperrors.NewForbiddenError("Cannot join another user's room")
	}

	room := realtime.UserRoom(c.UserID)
	if c.manager.Join(c, room) {
		c.reply(realtime.EventJoined, realtime.JoinedPayload{Room: room})
	}
	return nil
}

// ============================================
// Typing
// ============================================

func (c *Client) onTyping(data json.RawMessage) error {
	var in conversationRef
	if err := c.decode(data, &in); err != nil {
		return err
	}
	room := realtime.ConversationRoom(in.ConversationID)
	if !c.manager.InRoom(c, room) {
		return apperrors.ErrNotAParticipant
	}

	c.typingIn[in.ConversationID] = struct{}{}
	c.manager.typing.Touch(in.ConversationID, c.UserID, c)
	c.manager.BroadcastToRoomExcept(room, realtime.EventTyping,
		realtime.TypingPayload{ConversationID: in.ConversationID, UserID: c.UserID}, c)
	return nil
}

func (c *Client) onStopTyping(data json.RawMessage) error {
	var in conversationRef
	if err := c.decode(data, &in); err != nil {
		return err
	}
	if !c.manager.InRoom(c, realtime.ConversationRoom(in.ConversationID)) {
		return apperrors.ErrNotAParticipant
	}
	c.manager.typing.Stop(in.ConversationID, c.UserID)
	delete(c.typingIn, in.ConversationID)
	c.manager.BroadcastToRoomExcept(realtime.ConversationRoom(in.ConversationID), realtime.EventStopTyping,
		realtime.TypingPayload{ConversationID: in.ConversationID, UserID: c.UserID}, c)
	return nil
}

// stopTyping снимает индикатор без ошибки, если пользователь не печатал.
func (c *Client) stopTyping(conversationID string) {
	delete(c.typingIn, conversationID)
	if c.manager.typing.Stop(conversationID, c.UserID) {
		c.manager.BroadcastToRoomExcept(realtime.ConversationRoom(conversationID), realtime.EventStopTyping,
			realtime.TypingPayload{ConversationID: conversationID, UserID: c.UserID}, c)
	}
}

// ============================================
// Messages
// ============================================

func (c *Client) onMarkAsRead(data json.RawMessage) error {
	var in markAsReadInput
	if err := c.decode(data, &in); err != nil {
		return err
	}
	if in.MessageID != "" {
		_, err := c.chatService.MarkMessageRead(c.db, c.UserID, in.MessageID)
		return err
	}
	_, err := c.chatService.MarkConversationRead(c.db, c.UserID, in.ConversationID)
	return err
}

// onSendMessage сохраняет сообщение. new_message и уведомления рассылает сервис
// после коммита, отправитель получает свое сообщение через комнату переписки.
func (c *Client) onSendMessage(data json.RawMessage) error {
	var in dto.SendMessageRequest
	if err := c.decode(data, &in); err != nil {
		return err
	}
	if _, err := c.chatService.SendMessage(c.db, c.UserID, &in); err != nil {
		return err
	}
	c.stopTyping(in.ConversationID)
	return nil
}
