package chat

import (
	"time"

	"hamsafar_backend/internal/models"
)

type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `gorm:"primaryKey;type:varchar(36);index"`
	JoinedAt       time.Time `gorm:"autoCreateTime"`

	User *models.User `gorm:"foreignKey:UserID"`
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}
