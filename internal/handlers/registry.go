package handlers

// AppHandlers содержит все HTTP-хэндлеры приложения.
type AppHandlers struct {
	ChatHandler   *ChatHandler
	HealthHandler *HealthHandler
}
