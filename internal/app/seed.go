package app

import (
	"errors"
	"fmt"
	"strings"

	"hamsafar_backend/internal/logger"
	"hamsafar_backend/internal/models"

	"gorm.io/gorm"
)

// EnsureUser находит пользователя по email или создает его. Пользователей ведет
// сервис авторизации; здесь они нужны для локальной разработки.
// created=false - пользователь уже был.
func EnsureUser(db *gorm.DB, name, email string) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, errors.New("email is required")
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer tx.Rollback()

	var user models.User
	result := tx.Where("email = ?", email).First(&user)
	if result.Error == nil {
		logger.Info("User already exists. Skipping creation.", "email", email, "id", user.ID)
		return &user, false, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to check for user: %w", result.Error)
	}

	user = models.User{Name: strings.TrimSpace(name), Email: email}
	if err := tx.Create(&user).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, false, fmt.Errorf("failed to commit user: %w", err)
	}

	logger.Info("User created", "email", email, "id", user.ID)
	return &user, true, nil
}
