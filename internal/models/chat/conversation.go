package chat

import (
	"time"

	"hamsafar_backend/internal/models"

	"gorm.io/gorm"
)

// Conversation - переписка фиксированного набора пользователей.
// ParticipantKey однозначно задает набор, уникальный индекс не дает создать дубль.
// UpdatedAt сдвигается при каждом новом сообщении.
type Conversation struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	ParticipantKey string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time `gorm:"index"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = models.NewID()
	}
	return nil
}

// ParticipantIDs - идентификаторы участников в порядке загрузки.
func (c *Conversation) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
