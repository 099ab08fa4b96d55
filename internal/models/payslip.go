package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payslip struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        string          `gorm:"type:uuid;not null;uniqueIndex:idx_payslips_user_period,priority:1" json:"user_id"`
	User          *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Period        string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_payslips_user_period,priority:2" json:"period"`
	NatID         string          `gorm:"type:varchar(50)" json:"nat_id"`
	UserName      string          `gorm:"type:varchar(255)" json:"user_name"`
	EcocashNumber string          `gorm:"type:varchar(30)" json:"ecocash_number"`
	Email         string          `gorm:"type:varchar(255)" json:"email"`
	BasicPay      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"basic_pay"`
	Commission    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"commission"`
	Backpay       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"backpay"`
	Grosspay      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"grosspay"`
	Tax30Percent  decimal.Decimal `gorm:"column:tax_30_percent;type:decimal(12,2);not null" json:"tax_30_percent"`
	Netpay        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"netpay"`
	PayslipDate   time.Time       `gorm:"not null" json:"payslip_date"`
	UploadedBy    *string         `gorm:"type:uuid" json:"uploaded_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Payslip) TableName() string { return "payslips" }
