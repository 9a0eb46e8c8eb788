package repositories

import (
	"errors"

	"hamsafar_backend/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository - чтение пользователей сервиса авторизации.
type UserRepository interface {
	FindByID(db *gorm.DB, id string) (*models.User, error)
	// MissingIDs возвращает id из списка, которых нет в таблице users.
	MissingIDs(db *gorm.DB, ids []string) ([]string, error)
	Create(db *gorm.DB, user *models.User) error
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &user, err
}

func (r *UserRepositoryImpl) MissingIDs(db *gorm.DB, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []string
	if err := db.Model(&models.User{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	return lo.Without(ids, found...), nil
}

// Create используется при локальной разработке и в тестах.
func (r *UserRepositoryImpl) Create(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}
