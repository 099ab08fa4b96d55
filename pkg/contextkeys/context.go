package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

// DBContextKey - ключ, по которому в gin.Context хранится *gorm.DB
const DBContextKey = contextKey("db")

// Ключи аутентифицированного запроса
const (
	UserIDKey     = contextKey("userID")
	EmailKey      = contextKey("email")
	RoleKey       = contextKey("role")
	IsVerifiedKey = contextKey("isVerified")
)
