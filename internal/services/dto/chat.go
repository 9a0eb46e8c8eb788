package dto

import (
	"strings"
	"time"

	"hamsafar_backend/internal/models"
	"hamsafar_backend/internal/models/chat"
	"hamsafar_backend/pkg/apperrors"

	"github.com/samber/lo"
)

// Request/Response structures.
// Имена полей в camelCase: их ждет существующий мобильный и веб-клиент.

// CreateConversationRequest принимает две формы:
// {"participantIds": [...]} и устаревшую {"senderId": "...", "receiverId": "..."}.
type CreateConversationRequest struct {
	ParticipantIDs []string `json:"participantIds" validate:"omitempty,max=50,dive,entity-id"`
	SenderID       string   `json:"senderId" validate:"omitempty,entity-id"`
	ReceiverID     string   `json:"receiverId" validate:"omitempty,entity-id"`
}

// Normalize сводит обе формы запроса к одному отсортированному набору без повторов.
func (r *CreateConversationRequest) Normalize() ([]string, error) {
	var ids []string
	switch {
	case len(r.ParticipantIDs) > 0:
		ids = r.ParticipantIDs
	case r.SenderID != "" || r.ReceiverID != "":
		if r.SenderID == r.ReceiverID {
			return nil, apperrors.ErrInvalidParticipants("Cannot create a conversation with yourself")
		}
		ids = []string{r.SenderID, r.ReceiverID}
	default:
		return nil, apperrors.ErrInvalidParticipants("participantIds or senderId and receiverId are required")
	}

	ids = chat.NormalizeParticipants(ids)
	if len(ids) < 2 {
		return nil, apperrors.ErrTooFewParticipants
	}
	return ids, nil
}

type SendMessageRequest struct {
	ConversationID string `json:"conversationId" validate:"required,entity-id"`
	Text           string `json:"text" validate:"max=4000"`
}

// TrimmedText - текст без пробельных краев; пустая строка означает EmptyText.
func (r *SendMessageRequest) TrimmedText() string {
	return strings.TrimSpace(r.Text)
}

type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MessageResponse struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversationId"`
	SenderID       string       `json:"senderId"`
	Text           string       `json:"text"`
	CreatedAt      time.Time    `json:"createdAt"`
	Sender         *UserSummary `json:"sender,omitempty"`
}

type ConversationResponse struct {
	ID           string           `json:"id"`
	Participants []UserSummary    `json:"participants"`
	LastMessage  *MessageResponse `json:"lastMessage"`
	UnreadCount  int64            `json:"unreadCount"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unreadCount"`
}

type MarkReadResponse struct {
	MarkedCount int64 `json:"markedCount"`
}

// ============================================
// Mappers
// ============================================

func NewUserSummary(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name}
}

func NewMessageResponse(m *chat.Message) *MessageResponse {
	if m == nil {
		return nil
	}
	return &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
		Sender:         NewUserSummary(m.Sender),
	}
}

func NewMessageResponses(messages []chat.Message) []*MessageResponse {
	return lo.Map(messages, func(m chat.Message, _ int) *MessageResponse {
		return NewMessageResponse(&m)
	})
}

func NewConversationResponse(c *chat.Conversation, last *chat.Message, unread int64) *ConversationResponse {
	participants := lo.Map(c.Participants, func(p chat.ConversationParticipant, _ int) UserSummary {
		s := UserSummary{ID: p.UserID}
		if p.User != nil {
			s.Name = p.User.Name
		}
		return s
	})
	return &ConversationResponse{
		ID:           c.ID,
		Participants: participants,
		LastMessage:  NewMessageResponse(last),
		UnreadCount:  unread,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// LastActivity - время последнего сообщения, иначе создания переписки.
func (c *ConversationResponse) LastActivity() time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.CreatedAt
	}
	return c.CreatedAt
}
