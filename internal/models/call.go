package models

import (
	"time"

	"gorm.io/datatypes"
)

type Department struct {
	ID   uint   `gorm:"primaryKey;column:department_id" json:"department_id"`
	Name string `gorm:"column:department;type:varchar(50);uniqueIndex;not null" json:"department"`
}

func (Department) TableName() string { return "departments" }

type AgentType struct {
	ID   uint   `gorm:"primaryKey;column:agent_type_id" json:"agent_type_id"`
	Name string `gorm:"column:agent_type;type:varchar(50);uniqueIndex;not null" json:"agent_type"`
}

func (AgentType) TableName() string { return "agent_type" }

type Employee struct {
	ID           uint        `gorm:"primaryKey;column:employee_id" json:"employee_id"`
	AgentName    string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"agent_name"`
	AgentTypeID  uint        `gorm:"not null;index" json:"agent_type_id"`
	AgentType    *AgentType  `gorm:"foreignKey:AgentTypeID;references:ID" json:"agent_type,omitempty"`
	DepartmentID uint        `gorm:"not null;index" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID;references:ID" json:"department,omitempty"`
	ImageURL     string      `gorm:"type:varchar(500)" json:"image_url,omitempty"`
	IsActive     bool        `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (Employee) TableName() string { return "employees" }

// Call holds one agent's totals for one report slot (date + HH:MM).
type Call struct {
	ID                 uint           `gorm:"primaryKey;column:call_id" json:"call_id"`
	Date               datatypes.Date `gorm:"not null;uniqueIndex:idx_calls_slot_employee,priority:1" json:"date"`
	ReportTime         string         `gorm:"type:varchar(5);not null;uniqueIndex:idx_calls_slot_employee,priority:2" json:"report_time"`
	EmployeeID         uint           `gorm:"not null;uniqueIndex:idx_calls_slot_employee,priority:3" json:"employee_id"`
	Employee           *Employee      `gorm:"foreignKey:EmployeeID;references:ID" json:"employee,omitempty"`
	TotalInboundCalls  int            `gorm:"not null" json:"total_inbound_calls"`
	TotalOutboundCalls int            `gorm:"not null" json:"total_outbound_calls"`
	UploadID           uint           `gorm:"not null;index" json:"upload_id"`
	Upload             *FileUpload    `gorm:"foreignKey:UploadID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt          time.Time      `json:"created_at"`
}

func (Call) TableName() string { return "calls" }

func (c *Call) Total() int {
	return c.TotalInboundCalls + c.TotalOutboundCalls
}
