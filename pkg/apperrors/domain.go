package apperrors

import (
	"fmt"
	"net/http"
	"strings"
)

/*
Фабрики и предопределенные ошибки домена: аутентификация, импорт, загрузки.
*/

// --- Auth ---

// ErrInvalidCredentials is shared by "unknown email" and "wrong password" so the two are indistinguishable.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrAccountDeactivated = New(
	CodeAccountDeactivated,
	"auth",
	"Your account has been deactivated. Please contact an administrator",
	http.StatusForbidden,
)

var ErrEmailNotVerified = New(
	CodeEmailNotVerified,
	"auth",
	"Please verify your email before logging in",
	http.StatusForbidden,
)

var ErrEmailAlreadyVerified = New(
	CodeAlreadyUsed,
	"auth",
	"Email already verified",
	http.StatusBadRequest,
)

var ErrCurrentPasswordIncorrect = New(
	CodeInvalidCredentials,
	"auth",
	"Current password is incorrect",
	http.StatusBadRequest,
)

var ErrCannotModifySelf = New(
	CodeForbidden,
	"users",
	"Operation on self is not allowed",
	http.StatusForbidden,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// ErrDuplicateCredential reports which unique credential collided.
func ErrDuplicateCredential(message string) *AppError {
	return New(CodeDuplicateCredential, "auth", message, http.StatusConflict)
}

// --- Files ---

var ErrFileTooLarge = New(
	CodeLimitExceeded,
	"validation",
	"File size exceeds the allowed limit",
	http.StatusRequestEntityTooLarge,
)

var ErrInvalidFileType = New(
	CodeValidationFailed,
	"validation",
	"The provided file type is not allowed",
	http.StatusUnsupportedMediaType,
)

var ErrNoFileUploaded = New(
	CodeValidationFailed,
	"validation",
	"No file uploaded",
	http.StatusBadRequest,
)

// --- Import / reconciliation ---

// ErrMissingFields lists required fields absent from a row.
func ErrMissingFields(fields []string) *AppError {
	return New(CodeMissingFields, "import",
		"Missing required fields: "+strings.Join(fields, ", "),
		http.StatusBadRequest,
	).WithDetails(fields)
}

// ErrUnknownEntities reports reference names that do not resolve.
func ErrUnknownEntities(entity string, names []string) *AppError {
	return New(CodeUnknownEntities, "import",
		fmt.Sprintf("The following %s were not found in the database: %s", entity, strings.Join(names, ", ")),
		http.StatusUnprocessableEntity,
	).WithDetails(names)
}

func ErrDuplicateEntry(message string, details interface{}) *AppError {
	return New(CodeDuplicateEntry, "import", message, http.StatusConflict).WithDetails(details)
}

var ErrUploadAlreadyCancelled = New(
	CodeAlreadyCancelled,
	"uploads",
	"This upload has already been cancelled",
	http.StatusConflict,
)

// ErrTransport wraps a failure of an outbound transport such as SMTP.
func ErrTransport(err error, message string) *AppError {
	return Wrap(err, CodeTransportError, "transport", message, http.StatusBadGateway)
}
