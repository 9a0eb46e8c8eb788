package services

import (
	"errors"
	"slices"

	"hamsafar_backend/internal/logger"
	"hamsafar_backend/internal/models"
	"hamsafar_backend/internal/models/chat"
	"hamsafar_backend/internal/realtime"
	"hamsafar_backend/internal/repositories"
	"hamsafar_backend/internal/services/dto"
	"hamsafar_backend/pkg/apperrors"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type ChatService interface {
	// Conversation operations
	ResolveConversation(db *gorm.DB, callerID string, participantIDs []string) (*dto.ConversationResponse, bool, error)
	GetConversation(db *gorm.DB, conversationID, userID string) (*dto.ConversationResponse, error)
	GetUserConversations(db *gorm.DB, userID string) ([]*dto.ConversationResponse, error)
	CheckParticipant(db *gorm.DB, conversationID, userID string) error

	// Message operations
	SendMessage(db *gorm.DB, senderID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	GetMessages(db *gorm.DB, conversationID, userID string) ([]*dto.MessageResponse, error)

	// Read receipts
	GetUnreadCount(db *gorm.DB, userID string) (int64, error)
	MarkConversationRead(db *gorm.DB, userID, conversationID string) (int64, error)
	MarkMessageRead(db *gorm.DB, userID, messageID string) (bool, error)
}

type chatService struct {
	chatRepo   repositories.ChatRepository
	userRepo   repositories.UserRepository
	dispatcher *NotificationDispatcher
}

func NewChatService(
	chatRepo repositories.ChatRepository,
	userRepo repositories.UserRepository,
	dispatcher *NotificationDispatcher,
) ChatService {
	return &chatService{
		chatRepo:   chatRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
	}
}

// =======================
// Conversation operations
// =======================

// ResolveConversation возвращает переписку ровно с этим набором участников,
// создавая ее при первом обращении. created=false, если она уже была.
func (s *chatService) ResolveConversation(db *gorm.DB, callerID string, participantIDs []string) (*dto.ConversationResponse, bool, error) {
	ids := chat.NormalizeParticipants(participantIDs)
	if len(ids) < 2 {
		return nil, false, apperrors.ErrTooFewParticipants
	}
	if !lo.Contains(ids, callerID) {
		return nil, false, apperrors.ErrNotAParticipant
	}

	key := chat.ParticipantKey(ids)

	existing, err := s.chatRepo.FindConversationByKey(db, key)
	if err == nil {
		resp, err := s.buildConversationResponse(db, existing, callerID)
		return resp, false, err
	}
	if !errors.Is(err, repositories.ErrConversationNotFound) {
		return nil, false, handleChatError(err)
	}

	missing, err := s.userRepo.MissingIDs(db, ids)
	if err != nil {
		return nil, false, handleChatError(err)
	}
	if len(missing) > 0 {
		return nil, false, apperrors.ErrUserNotFound.WithDetails(map[string]any{"userIds": missing})
	}

	conversation := &chat.Conversation{ParticipantKey: key}
	if err := s.createConversation(db, conversation, ids); err != nil {
		// Параллельный запрос мог создать тот же набор раньше нас:
		// уникальный индекс отклонил вставку, отдаем победителя.
		winner, findErr := s.chatRepo.FindConversationByKey(db, key)
		if findErr == nil {
			logger.CtxDebug(db.Statement.Context, "conversation resolved after concurrent create",
				"conversation_id", winner.ID)
			resp, err := s.buildConversationResponse(db, winner, callerID)
			return resp, false, err
		}
		return nil, false, handleChatError(err)
	}

	created, err := s.chatRepo.FindConversationByID(db, conversation.ID)
	if err != nil {
		return nil, false, handleChatError(err)
	}

	logger.CtxInfo(db.Statement.Context, "conversation created",
		"conversation_id", created.ID,
		"participants", len(ids),
	)

	resp, err := s.buildConversationResponse(db, created, callerID)
	return resp, true, err
}

func (s *chatService) createConversation(db *gorm.DB, conversation *chat.Conversation, ids []string) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	if err := s.chatRepo.CreateConversation(tx, conversation, ids); err != nil {
		return err
	}
	return tx.Commit().Error
}

func (s *chatService) GetConversation(db *gorm.DB, conversationID, userID string) (*dto.ConversationResponse, error) {
	conversation, err := s.chatRepo.FindConversationByID(db, conversationID)
	if err != nil {
		return nil, handleChatError(err)
	}
	if !conversation.HasParticipant(userID) {
		return nil, apperrors.ErrNotAParticipant
	}
	return s.buildConversationResponse(db, conversation, userID)
}

// GetUserConversations - переписки пользователя с последним сообщением и счетчиком непрочитанных,
// отсортированные по последней активности.
func (s *chatService) GetUserConversations(db *gorm.DB, userID string) ([]*dto.ConversationResponse, error) {
	conversations, err := s.chatRepo.FindUserConversations(db, userID)
	if err != nil {
		return nil, handleChatError(err)
	}

	responses := make([]*dto.ConversationResponse, 0, len(conversations))
	for i := range conversations {
		resp, err := s.buildConversationResponse(db, &conversations[i], userID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	slices.SortStableFunc(responses, func(a, b *dto.ConversationResponse) int {
		return b.LastActivity().Compare(a.LastActivity())
	})
	return responses, nil
}

func (s *chatService) CheckParticipant(db *gorm.DB, conversationID, userID string) error {
	return s.checkMembership(db, conversationID, userID)
}

// ==================
// Message operations
// ==================

func (s *chatService) SendMessage(db *gorm.DB, senderID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	if req.TrimmedText() == "" {
		return nil, apperrors.ErrEmptyText
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, handleChatError(tx.Error)
	}
	defer tx.Rollback()

	participantIDs, err := s.requireParticipant(tx, req.ConversationID, senderID)
	if err != nil {
		return nil, err
	}

	message := &chat.Message{
		ConversationID: req.ConversationID,
		SenderID:       senderID,
		Text:           req.Text,
		CreatedAt:      models.Now(),
	}
	if err := s.chatRepo.CreateMessage(tx, message); err != nil {
		return nil, handleChatError(err)
	}
	if err := s.chatRepo.TouchConversation(tx, req.ConversationID, message.CreatedAt); err != nil {
		return nil, handleChatError(err)
	}

	sender, err := s.userRepo.FindByID(tx, senderID)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, handleChatError(err)
	}
	message.Sender = sender

	if err := tx.Commit().Error; err != nil {
		return nil, handleChatError(err)
	}

	resp := dto.NewMessageResponse(message)

	// Рассылаем только после коммита: клиент не должен увидеть сообщение,
	// которого нет в хранилище.
	s.dispatcher.DispatchNewMessage(resp, participantIDs)

	logger.CtxDebug(db.Statement.Context, "message sent",
		"conversation_id", message.ConversationID,
		"message_id", message.ID,
	)
	return resp, nil
}

func (s *chatService) GetMessages(db *gorm.DB, conversationID, userID string) ([]*dto.MessageResponse, error) {
	if err := s.checkMembership(db, conversationID, userID); err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.FindMessagesByConversation(db, conversationID)
	if err != nil {
		return nil, handleChatError(err)
	}
	return dto.NewMessageResponses(messages), nil
}

// =============
// Read receipts
// =============

func (s *chatService) GetUnreadCount(db *gorm.DB, userID string) (int64, error) {
	count, err := s.chatRepo.GetUnreadCount(db, userID)
	if err != nil {
		return 0, handleChatError(err)
	}
	return count, nil
}

// MarkConversationRead отмечает все непрочитанные сообщения переписки.
// Повторный вызов без новых сообщений возвращает 0.
func (s *chatService) MarkConversationRead(db *gorm.DB, userID, conversationID string) (int64, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return 0, handleChatError(tx.Error)
	}
	defer tx.Rollback()

	if err := s.checkMembership(tx, conversationID, userID); err != nil {
		return 0, err
	}

	ids, err := s.chatRepo.FindUnreadMessageIDs(tx, conversationID, userID)
	if err != nil {
		return 0, handleChatError(err)
	}

	readAt := models.Now()
	receipts := lo.Map(ids, func(id string, _ int) chat.MessageReadReceipt {
		return chat.MessageReadReceipt{MessageID: id, ReaderID: userID, ReadAt: readAt}
	})

	count, err := s.chatRepo.CreateReadReceipts(tx, receipts)
	if err != nil {
		return 0, handleChatError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return 0, handleChatError(err)
	}

	if count > 0 {
		s.dispatcher.DispatchMessagesRead(realtime.MessagesReadPayload{
			ConversationID: conversationID,
			ReaderID:       userID,
			MessageIDs:     ids,
			ReadAt:         readAt,
		})
	}
	return count, nil
}

// MarkMessageRead создает квитанцию на одно сообщение.
// Свои сообщения не отмечаются; true - квитанция создана этим вызовом.
func (s *chatService) MarkMessageRead(db *gorm.DB, userID, messageID string) (bool, error) {
	message, err := s.chatRepo.FindMessageByID(db, messageID)
	if err != nil {
		return false, handleChatError(err)
	}
	if err := s.checkMembership(db, message.ConversationID, userID); err != nil {
		return false, err
	}
	if message.SenderID == userID {
		return false, nil
	}

	readAt := models.Now()
	count, err := s.chatRepo.CreateReadReceipts(db, []chat.MessageReadReceipt{
		{MessageID: messageID, ReaderID: userID, ReadAt: readAt},
	})
	if err != nil {
		return false, handleChatError(err)
	}
	if count == 0 {
		return false, nil
	}

	s.dispatcher.DispatchMessageRead(realtime.MessageReadPayload{
		ConversationID: message.ConversationID,
		MessageID:      messageID,
		UserID:         userID,
		ReadAt:         readAt,
	})
	return true, nil
}

// =======
// Helpers
// =======

// requireParticipant отличает несуществующую переписку от чужой.
// У существующей переписки всегда не меньше двух участников.
func (s *chatService) requireParticipant(db *gorm.DB, conversationID, userID string) ([]string, error) {
	participantIDs, err := s.chatRepo.FindParticipantIDs(db, conversationID)
	if err != nil {
		return nil, handleChatError(err)
	}
	if len(participantIDs) == 0 {
		return nil, apperrors.ErrConversationNotFound
	}
	if !lo.Contains(participantIDs, userID) {
		return nil, apperrors.ErrNotAParticipant
	}
	return participantIDs, nil
}

// checkMembership - то же различие, когда список участников не нужен.
func (s *chatService) checkMembership(db *gorm.DB, conversationID, userID string) error {
	ok, err := s.chatRepo.IsParticipant(db, conversationID, userID)
	if err != nil {
		return handleChatError(err)
	}
	if ok {
		return nil
	}
	if _, err := s.chatRepo.FindConversationByID(db, conversationID); err != nil {
		return handleChatError(err)
	}
	return apperrors.ErrNotAParticipant
}

func (s *chatService) buildConversationResponse(db *gorm.DB, conversation *chat.Conversation, userID string) (*dto.ConversationResponse, error) {
	last, err := s.chatRepo.FindLastMessage(db, conversation.ID)
	if err != nil {
		return nil, handleChatError(err)
	}
	unread, err := s.chatRepo.GetConversationUnreadCount(db, conversation.ID, userID)
	if err != nil {
		return nil, handleChatError(err)
	}
	return dto.NewConversationResponse(conversation, last, unread), nil
}

// handleChatError переводит ошибки репозитория в таксономию API.
// Все неожиданное от хранилища считается временной недоступностью.
func handleChatError(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrConversationNotFound):
		return apperrors.ErrConversationNotFound.WithError(err)
	case errors.Is(err, repositories.ErrMessageNotFound):
		return apperrors.ErrMessageNotFound.WithError(err)
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperrors.ErrUserNotFound.WithError(err)
	default:
		return apperrors.ErrStoreUnavailable(err)
	}
}
