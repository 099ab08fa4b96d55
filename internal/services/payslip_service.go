package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pds_backend/internal/auth"
	"pds_backend/internal/logger"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/storage"
	"pds_backend/internal/tabular"
	"pds_backend/pkg/apperrors"
)

// payslipAmountColumns maps each amount column to its accepted header spellings.
var payslipAmountColumns = []struct {
	column  string
	headers []string
}{
	{"basic_pay", []string{"basic_pay", "basicpay", "basic"}},
	{"commission", []string{"commission"}},
	{"backpay", []string{"backpay", "back_pay"}},
	{"grosspay", []string{"grosspay", "gross_pay"}},
	{"tax_30_percent", []string{"tax_30_percent", "tax_30%", "tax30", "tax"}},
	{"netpay", []string{"netpay", "net_pay"}},
}

type PayslipService interface {
	ImportPayslips(ctx context.Context, db *gorm.DB, actor Actor, file *FileInput) (*dto.ImportResult, error)
	AddPayslip(ctx context.Context, db *gorm.DB, actor Actor, req *dto.CreatePayslipRequest) (*models.Payslip, error)
	UpdatePayslip(ctx context.Context, db *gorm.DB, id uint, req *dto.UpdatePayslipRequest) (*models.Payslip, error)
	ListPayslips(ctx context.Context, db *gorm.DB, period string, page, limit int) (*dto.PaginatedResponse, error)
	ListUserPayslips(ctx context.Context, db *gorm.DB, actor Actor, userID string) ([]models.Payslip, error)
	GetPayslip(ctx context.Context, db *gorm.DB, id uint) (*models.Payslip, error)
	DeletePayslip(ctx context.Context, db *gorm.DB, actor Actor, id uint) error
}

type PayslipServiceImpl struct {
	payslipRepo repositories.PayslipRepository
	userRepo    repositories.UserRepository
	audit       AuditService
	storage     storage.Storage
	now         func() time.Time
}

func NewPayslipService(
	payslipRepo repositories.PayslipRepository,
	userRepo repositories.UserRepository,
	audit AuditService,
	store storage.Storage,
) *PayslipServiceImpl {
	return &PayslipServiceImpl{
		payslipRepo: payslipRepo,
		userRepo:    userRepo,
		audit:       audit,
		storage:     store,
		now:         time.Now,
	}
}

// payslipInput is the transport-neutral form shared by the single and bulk paths.
type payslipInput struct {
	NatID         string
	EcocashNumber string
	Period        string
	UserName      string
	Email         string
	Amounts       map[string]string
	PayslipDate   string
}

func (s *PayslipServiceImpl) ImportPayslips(ctx context.Context, db *gorm.DB, actor Actor, file *FileInput) (*dto.ImportResult, error) {
	db = db.WithContext(ctx)

	rows, err := readStagedSheet(ctx, s.storage, "imports/payslips", "payslips", file, s.now().UTC())
	if err != nil {
		return nil, err
	}

	result := dto.NewImportResult()
	for i, row := range rows {
		rowNum := i + 1
		payslip, err := s.create(db, actor, rowToPayslipInput(row))
		if err != nil {
			result.AddError(rowNum, rowErrorMessage(err), map[string]string{
				"nat_id":         row.Get("nat_id"),
				"ecocash_number": row.Get("ecocash_number"),
				"period":         row.Get("period"),
			})
			continue
		}
		result.AddSuccess(rowNum, payslip.ID, payslip.NatID)
	}

	s.audit.RecordBestEffort(ctx, db, actor, models.AuditPayslipImport,
		fmt.Sprintf("Imported payslips from %s: %d succeeded, %d failed",
			file.Name, result.Summary.SuccessCount, result.Summary.ErrorCount))

	logger.CtxInfo(ctx, "payslip import finished",
		"file", file.Name,
		"total", result.Summary.TotalRecords,
		"success", result.Summary.SuccessCount,
		"errors", result.Summary.ErrorCount,
	)
	return result, nil
}

func rowToPayslipInput(row tabular.Row) payslipInput {
	in := payslipInput{
		NatID:         row.Get("nat_id"),
		EcocashNumber: row.Get("ecocash_number"),
		Period:        row.Get("period"),
		UserName:      firstNonEmpty(row.Get("user_name"), row.Get("name")),
		Email:         row.Get("email"),
		PayslipDate:   row.Get("payslip_date"),
		Amounts:       make(map[string]string, len(payslipAmountColumns)),
	}
	for _, col := range payslipAmountColumns {
		for _, h := range col.headers {
			if v := row.Get(h); v != "" {
				in.Amounts[col.column] = v
				break
			}
		}
	}
	return in
}

func (s *PayslipServiceImpl) AddPayslip(ctx context.Context, db *gorm.DB, actor Actor, req *dto.CreatePayslipRequest) (*models.Payslip, error) {
	in := payslipInput{
		NatID:         req.NatID,
		EcocashNumber: req.EcocashNumber,
		Period:        req.Period,
		UserName:      req.UserName,
		Email:         req.Email,
		PayslipDate:   req.PayslipDate,
		Amounts: map[string]string{
			"basic_pay":      req.BasicPay,
			"commission":     req.Commission,
			"backpay":        req.Backpay,
			"grosspay":       req.Grosspay,
			"tax_30_percent": req.Tax30Percent,
			"netpay":         req.Netpay,
		},
	}
	return s.create(db.WithContext(ctx), actor, in)
}

func (s *PayslipServiceImpl) create(db *gorm.DB, actor Actor, in payslipInput) (*models.Payslip, error) {
	in.Period = strings.TrimSpace(in.Period)
	in.NatID = strings.TrimSpace(in.NatID)
	in.EcocashNumber = strings.TrimSpace(in.EcocashNumber)

	var missing []string
	if in.Period == "" {
		missing = append(missing, "period")
	}
	if in.NatID == "" && in.EcocashNumber == "" {
		missing = append(missing, "nat_id or ecocash_number")
	}
	if len(missing) > 0 {
		return nil, apperrors.ErrMissingFields(missing)
	}

	owner, err := s.resolveOwner(db, in.NatID, in.EcocashNumber)
	if err != nil {
		return nil, err
	}

	exists, err := s.payslipRepo.ExistsForPeriod(db, owner.ID, in.Period)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if exists {
		return nil, apperrors.ErrDuplicateEntry(
			fmt.Sprintf("Payslip for period %s already exists for this user", in.Period), nil)
	}

	amounts := make(map[string]decimal.Decimal, len(payslipAmountColumns))
	for _, col := range payslipAmountColumns {
		amount, err := parseAmount(col.column, in.Amounts[col.column])
		if err != nil {
			return nil, err
		}
		amounts[col.column] = amount
	}

	payslipDate := s.now().UTC()
	if d := strings.TrimSpace(in.PayslipDate); d != "" {
		parsed, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return nil, apperrors.ValidationError(map[string]string{
				"payslip_date": "Invalid payslip_date: must be YYYY-MM-DD",
			}).WithError(err)
		}
		payslipDate = parsed
	}

	payslip := &models.Payslip{
		UserID:        owner.ID,
		Period:        in.Period,
		NatID:         firstNonEmpty(in.NatID, deref(owner.NatID)),
		UserName:      firstNonEmpty(strings.TrimSpace(in.UserName), owner.FullName()),
		EcocashNumber: firstNonEmpty(in.EcocashNumber, owner.PhoneNumber),
		Email:         firstNonEmpty(strings.TrimSpace(in.Email), owner.Email),
		BasicPay:      amounts["basic_pay"],
		Commission:    amounts["commission"],
		Backpay:       amounts["backpay"],
		Grosspay:      amounts["grosspay"],
		Tax30Percent:  amounts["tax_30_percent"],
		Netpay:        amounts["netpay"],
		PayslipDate:   payslipDate,
		UploadedBy:    trimmedPtr(actor.UserID),
	}
	if err := s.payslipRepo.Create(db, payslip); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateEntry(
				fmt.Sprintf("Payslip for period %s already exists for this user", in.Period), nil)
		}
		return nil, apperrors.InternalError(err)
	}
	return payslip, nil
}

// resolveOwner looks the user up by national ID first, then by phone via the Ecocash number.
func (s *PayslipServiceImpl) resolveOwner(db *gorm.DB, natID, ecocash string) (*models.User, error) {
	if natID != "" {
		user, err := s.userRepo.FindByNatID(db, natID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.InternalError(err)
		}
	}
	if ecocash != "" {
		user, err := s.userRepo.FindByPhone(db, ecocash)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.InternalError(err)
		}
	}
	if natID != "" {
		return nil, apperrors.NewNotFoundError("payslips", fmt.Sprintf("User with Nat_ID %s not found", natID))
	}
	return nil, apperrors.NewNotFoundError("payslips", fmt.Sprintf("User with Ecocash number %s not found", ecocash))
}

func parseAmount(column, raw string) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperrors.ValidationError(map[string]string{
			column: fmt.Sprintf("Invalid amount for %s: '%s'", column, raw),
		})
	}
	return amount.Round(2), nil
}

func (s *PayslipServiceImpl) UpdatePayslip(ctx context.Context, db *gorm.DB, id uint, req *dto.UpdatePayslipRequest) (*models.Payslip, error) {
	db = db.WithContext(ctx)

	fields := map[string]*string{
		"basic_pay":      req.BasicPay,
		"commission":     req.Commission,
		"backpay":        req.Backpay,
		"grosspay":       req.Grosspay,
		"tax_30_percent": req.Tax30Percent,
		"netpay":         req.Netpay,
	}
	updates := make(map[string]interface{})
	for column, raw := range fields {
		if raw == nil {
			continue
		}
		amount, err := parseAmount(column, *raw)
		if err != nil {
			return nil, err
		}
		updates[column] = amount
	}
	if len(updates) == 0 {
		return nil, apperrors.NewBadRequestError("No fields to update")
	}

	if err := s.payslipRepo.Update(db, id, updates); err != nil {
		return nil, payslipError(err)
	}
	return s.GetPayslip(ctx, db, id)
}

func (s *PayslipServiceImpl) ListPayslips(ctx context.Context, db *gorm.DB, period string, page, limit int) (*dto.PaginatedResponse, error) {
	page, limit = normalizePage(page, limit)
	payslips, total, err := s.payslipRepo.List(db.WithContext(ctx), repositories.PayslipFilter{
		Period:   strings.TrimSpace(period),
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewPaginatedResponse(payslips, total, page, limit), nil
}

func (s *PayslipServiceImpl) ListUserPayslips(ctx context.Context, db *gorm.DB, actor Actor, userID string) ([]models.Payslip, error) {
	if !auth.CanViewUserPayslips(actor.Role, actor.UserID, userID) {
		return nil, apperrors.ErrInsufficientPermissions
	}
	payslips, err := s.payslipRepo.ListByUser(db.WithContext(ctx), userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return payslips, nil
}

func (s *PayslipServiceImpl) GetPayslip(ctx context.Context, db *gorm.DB, id uint) (*models.Payslip, error) {
	payslip, err := s.payslipRepo.FindByID(db.WithContext(ctx), id)
	if err != nil {
		return nil, payslipError(err)
	}
	return payslip, nil
}

func (s *PayslipServiceImpl) DeletePayslip(ctx context.Context, db *gorm.DB, actor Actor, id uint) error {
	if actor.Role != models.RoleAdmin {
		return apperrors.ErrInsufficientPermissions
	}
	if err := s.payslipRepo.Delete(db.WithContext(ctx), id); err != nil {
		return payslipError(err)
	}
	return nil
}

func payslipError(err error) error {
	if errors.Is(err, repositories.ErrPayslipNotFound) {
		return apperrors.NewNotFoundError("payslips", "Payslip not found")
	}
	return apperrors.InternalError(err)
}

// rowErrorMessage flattens an error for the per-row import report.
func rowErrorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if details, ok := appErr.Details.(map[string]string); ok && appErr.Code == apperrors.CodeValidationFailed {
			fields := make([]string, 0, len(details))
			for field := range details {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			parts := make([]string, 0, len(fields))
			for _, field := range fields {
				parts = append(parts, details[field])
			}
			return strings.Join(parts, "; ")
		}
		return appErr.Message
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
