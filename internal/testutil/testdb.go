// Package testutil - общие помощники для тестов: БД на sqlite, пользователи, токены.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"hamsafar_backend/database"
	"hamsafar_backend/internal/auth"
	"hamsafar_backend/internal/config"
	"hamsafar_backend/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	JWTSecret = "test-secret"
	JWTIssuer = "hamsafar-test"
)

// Config - конфиг поверх временной sqlite-базы.
func Config(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Env = "test"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "chat.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	cfg.JWT.Secret = JWTSecret
	cfg.JWT.Issuer = JWTIssuer
	cfg.Realtime.TypingIdle = 200 * time.Millisecond
	return cfg
}

// NewTestDB создает мигрированную sqlite-базу, которая живет до конца теста.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return NewTestDBWithConfig(t, Config(t))
}

func NewTestDBWithConfig(t *testing.T, cfg *config.Config) *gorm.DB {
	t.Helper()
	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err, "не удалось открыть тестовую БД")
	require.NoError(t, database.AutoMigrate(db), "не удалось выполнить AutoMigrate")

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// CreateUser сохраняет пользователя с именем name.
func CreateUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: fmt.Sprintf("%s-%s@hamsafar.test", name, models.NewID()[28:])}
	require.NoError(t, db.Create(user).Error, "создание пользователя %s", name)
	return user
}

// Token выпускает токен, который примет middleware.AuthMiddleware с конфигом из Config.
func Token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := auth.NewVerifier(JWTSecret, JWTIssuer).Sign(auth.Identity{ID: user.ID, Name: user.Name}, time.Hour)
	require.NoError(t, err)
	return token
}
