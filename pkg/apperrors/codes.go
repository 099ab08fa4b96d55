package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Системные коды
const (
	CodeInternalError  ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError  ErrorCode = "DATABASE_ERROR"
	CodeTransportError ErrorCode = "TRANSPORT_ERROR"
)

// Общие ошибки бизнес-логики
const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeMissingFields    ErrorCode = "MISSING_FIELDS"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeLimitExceeded    ErrorCode = "LIMIT_EXCEEDED"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"
)

// Аутентификация и авторизация
const (
	CodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	CodeForbidden           ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	CodeAccountDeactivated  ErrorCode = "ACCOUNT_DEACTIVATED"
	CodeEmailNotVerified    ErrorCode = "EMAIL_NOT_VERIFIED"
	CodeAlreadyUsed         ErrorCode = "ALREADY_USED"
	CodeDuplicateCredential ErrorCode = "DUPLICATE_CREDENTIAL"
)

// Импорт и сверка данных
const (
	CodeUnknownEntities  ErrorCode = "UNKNOWN_ENTITIES"
	CodeDuplicateEntry   ErrorCode = "DUPLICATE_ENTRY"
	CodeAlreadyCancelled ErrorCode = "ALREADY_CANCELLED"
)
