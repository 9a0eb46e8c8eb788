package chat

import (
	"time"

	"hamsafar_backend/internal/models"

	"gorm.io/gorm"
)

// Message неизменяем после вставки. Порядок: (created_at, id).
type Message struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	ConversationID string    `gorm:"type:varchar(36);not null;index:idx_messages_conversation_created,priority:1"`
	SenderID       string    `gorm:"type:varchar(36);not null;index"`
	Text           string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"not null;index:idx_messages_conversation_created,priority:2"`

	Sender *models.User `gorm:"foreignKey:SenderID"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = models.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = models.Now()
	}
	return nil
}
