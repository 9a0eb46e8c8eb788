package chat

import (
	"time"

	"hamsafar_backend/internal/models"

	"gorm.io/gorm"
)

// MessageReadReceipt - факт прочтения. Не больше одной записи на (message, reader).
type MessageReadReceipt struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	MessageID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_receipts_message_reader"`
	ReaderID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_receipts_message_reader;index"`
	ReadAt    time.Time `gorm:"not null"`
}

func (MessageReadReceipt) TableName() string {
	return "message_read_receipts"
}

func (r *MessageReadReceipt) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = models.NewID()
	}
	if r.ReadAt.IsZero() {
		r.ReadAt = models.Now()
	}
	return nil
}
