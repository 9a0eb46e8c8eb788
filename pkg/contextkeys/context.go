package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

const (
	// DBContextKey - ключ, по которому хранится *gorm.DB
	DBContextKey = contextKey("db")

	// IdentityContextKey - ключ для auth.Identity после проверки токена
	IdentityContextKey = contextKey("identity")
)
