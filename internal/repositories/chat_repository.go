package repositories

import (
	"errors"
	"time"

	"hamsafar_backend/internal/models/chat"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

type ChatRepository interface {
	// Conversation operations
	CreateConversation(db *gorm.DB, conversation *chat.Conversation, participantIDs []string) error
	FindConversationByID(db *gorm.DB, id string) (*chat.Conversation, error)
	FindConversationByKey(db *gorm.DB, participantKey string) (*chat.Conversation, error)
	FindUserConversations(db *gorm.DB, userID string) ([]chat.Conversation, error)
	TouchConversation(db *gorm.DB, conversationID string, at time.Time) error

	// Participant operations
	IsParticipant(db *gorm.DB, conversationID, userID string) (bool, error)
	FindParticipantIDs(db *gorm.DB, conversationID string) ([]string, error)

	// Message operations
	CreateMessage(db *gorm.DB, message *chat.Message) error
	FindMessageByID(db *gorm.DB, id string) (*chat.Message, error)
	FindMessagesByConversation(db *gorm.DB, conversationID string) ([]chat.Message, error)
	FindLastMessage(db *gorm.DB, conversationID string) (*chat.Message, error)

	// MessageReadReceipt operations
	FindUnreadMessageIDs(db *gorm.DB, conversationID, userID string) ([]string, error)
	CreateReadReceipts(db *gorm.DB, receipts []chat.MessageReadReceipt) (int64, error)
	GetUnreadCount(db *gorm.DB, userID string) (int64, error)
	GetConversationUnreadCount(db *gorm.DB, conversationID, userID string) (int64, error)
}

type ChatRepositoryImpl struct{}

func NewChatRepository() ChatRepository {
	return &ChatRepositoryImpl{}
}

// =======================
// Conversation operations
// =======================

// CreateConversation вставляет переписку вместе с участниками.
// Вызывать внутри транзакции: при конфликте ключа набора вернется gorm.ErrDuplicatedKey.
func (r *ChatRepositoryImpl) CreateConversation(db *gorm.DB, conversation *chat.Conversation, participantIDs []string) error {
	if err := db.Omit(clause.Associations).Create(conversation).Error; err != nil {
		return err
	}

	participants := make([]chat.ConversationParticipant, 0, len(participantIDs))
	for _, userID := range participantIDs {
		participants = append(participants, chat.ConversationParticipant{
			ConversationID: conversation.ID,
			UserID:         userID,
			JoinedAt:       conversation.CreatedAt,
		})
	}
	if err := db.Omit(clause.Associations).Create(&participants).Error; err != nil {
		return err
	}

	conversation.Participants = participants
	return nil
}

func (r *ChatRepositoryImpl) FindConversationByID(db *gorm.DB, id string) (*chat.Conversation, error) {
	var conversation chat.Conversation
	err := db.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC, user_id ASC")
	}).Preload("Participants.User").
		First(&conversation, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	return &conversation, err
}

func (r *ChatRepositoryImpl) FindConversationByKey(db *gorm.DB, participantKey string) (*chat.Conversation, error) {
	var conversation chat.Conversation
	err := db.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC, user_id ASC")
	}).Preload("Participants.User").
		Where("participant_key = ?", participantKey).
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	return &conversation, err
}

// FindUserConversations - все переписки пользователя, свежие сверху.
func (r *ChatRepositoryImpl) FindUserConversations(db *gorm.DB, userID string) ([]chat.Conversation, error) {
	var conversations []chat.Conversation
	err := db.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC, user_id ASC")
	}).Preload("Participants.User").
		Where("id IN (?)", db.Model(&chat.ConversationParticipant{}).
			Select("conversation_id").
			Where("user_id = ?", userID)).
		Order("updated_at DESC, id DESC").
		Find(&conversations).Error
	return conversations, err
}

func (r *ChatRepositoryImpl) TouchConversation(db *gorm.DB, conversationID string, at time.Time) error {
	return db.Model(&chat.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumn("updated_at", at).Error
}

// ======================
// Participant operations
// ======================

func (r *ChatRepositoryImpl) IsParticipant(db *gorm.DB, conversationID, userID string) (bool, error) {
	var count int64
	err := db.Model(&chat.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ChatRepositoryImpl) FindParticipantIDs(db *gorm.DB, conversationID string) ([]string, error) {
	var ids []string
	err := db.Model(&chat.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// ==================
// Message operations
// ==================

func (r *ChatRepositoryImpl) CreateMessage(db *gorm.DB, message *chat.Message) error {
	return db.Omit(clause.Associations).Create(message).Error
}

func (r *ChatRepositoryImpl) FindMessageByID(db *gorm.DB, id string) (*chat.Message, error) {
	var message chat.Message
	err := db.Preload("Sender").First(&message, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	return &message, err
}

// FindMessagesByConversation - вся история по возрастанию времени.
func (r *ChatRepositoryImpl) FindMessagesByConversation(db *gorm.DB, conversationID string) ([]chat.Message, error) {
	var messages []chat.Message
	err := db.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// FindLastMessage возвращает nil без ошибки, если сообщений нет.
func (r *ChatRepositoryImpl) FindLastMessage(db *gorm.DB, conversationID string) (*chat.Message, error) {
	var messages []chat.Message
	err := db.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&messages).Error
	if err != nil || len(messages) == 0 {
		return nil, err
	}
	return &messages[0], nil
}

// =============================
// MessageReadReceipt operations
// =============================

// unreadScope - сообщения чужих отправителей без квитанции от userID.
func unreadScope(userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Joins("LEFT JOIN message_read_receipts AS r ON r.message_id = m.id AND r.reader_id = ?", userID).
			Where("m.sender_id <> ? AND r.id IS NULL", userID)
	}
}

func (r *ChatRepositoryImpl) FindUnreadMessageIDs(db *gorm.DB, conversationID, userID string) ([]string, error) {
	var ids []string
	err := db.Table("messages AS m").
		Scopes(unreadScope(userID)).
		Where("m.conversation_id = ?", conversationID).
		Order("m.created_at ASC, m.id ASC").
		Pluck("m.id", &ids).Error
	return ids, err
}

// CreateReadReceipts вставляет квитанции, пропуская уже существующие.
// Возвращает число реально созданных записей.
func (r *ChatRepositoryImpl) CreateReadReceipts(db *gorm.DB, receipts []chat.MessageReadReceipt) (int64, error) {
	if len(receipts) == 0 {
		return 0, nil
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "reader_id"}},
		DoNothing: true,
	}).CreateInBatches(&receipts, 100)
	return res.RowsAffected, res.Error
}

// GetUnreadCount - сумма по всем перепискам, где userID участник.
func (r *ChatRepositoryImpl) GetUnreadCount(db *gorm.DB, userID string) (int64, error) {
	var count int64
	err := db.Table("messages AS m").
		Joins("JOIN conversation_participants AS cp ON cp.conversation_id = m.conversation_id AND cp.user_id = ?", userID).
		Scopes(unreadScope(userID)).
		Count(&count).Error
	return count, err
}

func (r *ChatRepositoryImpl) GetConversationUnreadCount(db *gorm.DB, conversationID, userID string) (int64, error) {
	var count int64
	err := db.Table("messages AS m").
		Scopes(unreadScope(userID)).
		Where("m.conversation_id = ?", conversationID).
		Count(&count).Error
	return count, err
}
