package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel - общий идентификатор и метки времени.
// ID генерируется приложением (uuid v7), поэтому сортировка по id совпадает
// с порядком вставки и не зависит от диалекта БД.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewID возвращает новый упорядоченный по времени идентификатор.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Now - серверное время в UTC с точностью до микросекунд (общий минимум для postgres/sqlite).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
