package models

import "gorm.io/gorm"

// User - учетная запись из сервиса авторизации.
// Чат только читает ее (имя отправителя, проверка существования участника).
type User struct {
	BaseModel
	Name  string `gorm:"type:varchar(255);not null" json:"name"`
	Email string `gorm:"type:varchar(255)" json:"email,omitempty"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}
