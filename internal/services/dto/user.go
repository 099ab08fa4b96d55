package dto

type UserListQuery struct {
	Page     int    `form:"page" validate:"omitempty,min=1"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Search   string `form:"search" validate:"omitempty,max=100"`
	Role     string `form:"role" validate:"omitempty,oneof=USER ADMIN HR"`
	IsActive *bool  `form:"is_active"`
}

type AuditListQuery struct {
	Page   int    `form:"page" validate:"omitempty,min=1"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Action string `form:"action" validate:"omitempty,max=50"`
	UserID string `form:"user_id" validate:"omitempty,uuid"`
}
