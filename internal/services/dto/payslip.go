package dto

type CreatePayslipRequest struct {
	NatID         string `json:"nat_id" validate:"required_without=EcocashNumber,max=50"`
	EcocashNumber string `json:"ecocash_number" validate:"required_without=NatID,max=30"`
	Period        string `json:"period" validate:"required,max=20"`
	UserName      string `json:"user_name" validate:"omitempty,max=255"`
	Email         string `json:"email" validate:"omitempty,email"`
	BasicPay      string `json:"basic_pay" validate:"omitempty,numeric"`
	Commission    string `json:"commission" validate:"omitempty,numeric"`
	Backpay       string `json:"backpay" validate:"omitempty,numeric"`
	Grosspay      string `json:"grosspay" validate:"omitempty,numeric"`
	Tax30Percent  string `json:"tax_30_percent" validate:"omitempty,numeric"`
	Netpay        string `json:"netpay" validate:"omitempty,numeric"`
	PayslipDate   string `json:"payslip_date" validate:"omitempty,report-date"`
}

// UpdatePayslipRequest updates only the supplied amounts.
type UpdatePayslipRequest struct {
	BasicPay     *string `json:"basic_pay" validate:"omitempty,numeric"`
	Commission   *string `json:"commission" validate:"omitempty,numeric"`
	Backpay      *string `json:"backpay" validate:"omitempty,numeric"`
	Grosspay     *string `json:"grosspay" validate:"omitempty,numeric"`
	Tax30Percent *string `json:"tax_30_percent" validate:"omitempty,numeric"`
	Netpay       *string `json:"netpay" validate:"omitempty,numeric"`
}
