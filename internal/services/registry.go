package services

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService            AuthService
	UserService            UserService
	UserImportService      UserImportService
	PayslipService         PayslipService
	CallUploadService      CallUploadService
	EmployeeService        EmployeeService
	DisplaySettingsService DisplaySettingsService
	VideoService           VideoService
	AuditService           AuditService
}
