package services

import (
	"hamsafar_backend/internal/realtime"
	"hamsafar_backend/internal/repositories"
)

// ServiceContainer хранит все сервисы приложения.
type ServiceContainer struct {
	ChatService ChatService
}

// NewServiceContainer собирает сервисы поверх репозиториев и realtime-хаба.
// broadcaster может быть nil: тогда события никуда не рассылаются.
func NewServiceContainer(broadcaster realtime.Broadcaster) *ServiceContainer {
	return &ServiceContainer{
		ChatService: NewChatService(
			repositories.NewChatRepository(),
			repositories.NewUserRepository(),
			NewNotificationDispatcher(broadcaster),
		),
	}
}
