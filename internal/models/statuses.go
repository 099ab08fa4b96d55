package models

type RoleName string
type TokenKind string
type UploadStatus string
type AuditAction string
type SettingType string

const (
	RoleUser  RoleName = "USER"
	RoleAdmin RoleName = "ADMIN"
	RoleHR    RoleName = "HR"

	TokenAccess        TokenKind = "ACCESS"
	TokenRefresh       TokenKind = "REFRESH"
	TokenVerification  TokenKind = "VERIFICATION"
	TokenPasswordReset TokenKind = "PASSWORD_RESET"

	UploadPending   UploadStatus = "PENDING"
	UploadProcessed UploadStatus = "PROCESSED"
	UploadCancelled UploadStatus = "CANCELLED"

	SettingString  SettingType = "string"
	SettingNumber  SettingType = "number"
	SettingBoolean SettingType = "boolean"
	SettingJSON    SettingType = "json"
)

const (
	AuditLogin                AuditAction = "LOGIN"
	AuditLogout               AuditAction = "LOGOUT"
	AuditPasswordReset        AuditAction = "PASSWORD_RESET"
	AuditPasswordChange       AuditAction = "PASSWORD_CHANGE"
	AuditUploadVideo          AuditAction = "UPLOAD_VIDEO"
	AuditUpdateVideo          AuditAction = "UPDATE_VIDEO"
	AuditDeleteVideo          AuditAction = "DELETE_VIDEO"
	AuditCSVUpload            AuditAction = "CSV_UPLOAD"
	AuditCSVUploadCancel      AuditAction = "CSV_UPLOAD_CANCEL"
	AuditUpdateDisplaySetting AuditAction = "UPDATE_DISPLAY_SETTING"
	AuditUserImport           AuditAction = "USER_IMPORT"
	AuditPayslipImport        AuditAction = "PAYSLIP_IMPORT"
	AuditUserStatusChange     AuditAction = "USER_STATUS_CHANGE"
)

// CanTransitionTo reports whether an upload batch may move from s to next.
// CANCELLED is terminal.
func (s UploadStatus) CanTransitionTo(next UploadStatus) bool {
	switch s {
	case UploadPending:
		return next == UploadProcessed || next == UploadCancelled
	case UploadProcessed:
		return next == UploadCancelled
	default:
		return false
	}
}

func (t SettingType) Valid() bool {
	switch t {
	case SettingString, SettingNumber, SettingBoolean, SettingJSON:
		return true
	}
	return false
}
