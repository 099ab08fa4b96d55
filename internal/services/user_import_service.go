package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"pds_backend/internal/auth"
	"pds_backend/internal/logger"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/storage"
	"pds_backend/internal/tabular"
	"pds_backend/internal/validator"
	"pds_backend/pkg/apperrors"
)

var userImportRequired = []string{
	"first_name", "last_name", "email", "nat_id", "phone_number", "department", "password",
}

// userImportRow is the validated shape of one spreadsheet row.
type userImportRow struct {
	FirstName   string `json:"first_name" validate:"max=50"`
	LastName    string `json:"last_name" validate:"max=50"`
	Email       string `json:"email" validate:"email,max=255"`
	NatID       string `json:"nat_id" validate:"max=50"`
	PhoneNumber string `json:"phone_number" validate:"max=30"`
	Department  string `json:"department" validate:"max=100"`
	Password    string `json:"password" validate:"min=6,max=72"`
}

// UserImportService provisions accounts in bulk; each row succeeds or fails on its own.
type UserImportService interface {
	ImportUsers(ctx context.Context, db *gorm.DB, actor Actor, file *FileInput) (*dto.ImportResult, error)
}

type UserImportServiceImpl struct {
	userRepo  repositories.UserRepository
	roleRepo  repositories.RoleRepository
	audit     AuditService
	storage   storage.Storage
	validator *validator.Validator
	now       func() time.Time
}

func NewUserImportService(
	userRepo repositories.UserRepository,
	roleRepo repositories.RoleRepository,
	audit AuditService,
	store storage.Storage,
	v *validator.Validator,
) *UserImportServiceImpl {
	return &UserImportServiceImpl{
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		audit:     audit,
		storage:   store,
		validator: v,
		now:       time.Now,
	}
}

func (s *UserImportServiceImpl) ImportUsers(ctx context.Context, db *gorm.DB, actor Actor, file *FileInput) (*dto.ImportResult, error) {
	db = db.WithContext(ctx)

	rows, err := readStagedSheet(ctx, s.storage, "imports/users", "users", file, s.now().UTC())
	if err != nil {
		return nil, err
	}

	role, err := s.roleRepo.FindByName(db, models.RoleUser)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	result := dto.NewImportResult()
	for i, row := range rows {
		rowNum := i + 1
		user, err := s.importRow(db, row, role)
		if err != nil {
			result.AddError(rowNum, rowErrorMessage(err), map[string]string{
				"first_name": row.Get("first_name"),
				"last_name":  row.Get("last_name"),
				"email":      row.Get("email"),
				"nat_id":     row.Get("nat_id"),
			})
			continue
		}
		result.AddSuccess(rowNum, user.ID, row.Get("nat_id"))
	}

	s.audit.RecordBestEffort(ctx, db, actor, models.AuditUserImport,
		fmt.Sprintf("Imported users from %s: %d succeeded, %d failed",
			file.Name, result.Summary.SuccessCount, result.Summary.ErrorCount))

	logger.CtxInfo(ctx, "user import finished",
		"file", file.Name,
		"total", result.Summary.TotalRecords,
		"success", result.Summary.SuccessCount,
		"errors", result.Summary.ErrorCount,
	)
	return result, nil
}

// importRow returns an error whose message is reported verbatim for the row.
func (s *UserImportServiceImpl) importRow(db *gorm.DB, row tabular.Row, role *models.Role) (*models.User, error) {
	if missing := row.Missing(userImportRequired...); len(missing) > 0 {
		return nil, apperrors.ErrMissingFields(missing)
	}

	in := userImportRow{
		FirstName:   row.Get("first_name"),
		LastName:    row.Get("last_name"),
		Email:       strings.ToLower(row.Get("email")),
		NatID:       row.Get("nat_id"),
		PhoneNumber: row.Get("phone_number"),
		Department:  row.Get("department"),
		Password:    row.Get("password"),
	}
	if err := s.validator.Validate(&in); err != nil {
		return nil, err
	}

	conflicts, err := s.userRepo.FindConflicts(db, in.Email, in.PhoneNumber, &in.NatID)
	if err != nil {
		return nil, errors.New("Database error while checking for duplicates")
	}
	if err := credentialConflictError(conflicts); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, errors.New("Failed to hash password")
	}

	natID := in.NatID
	user := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		NatID:        &natID,
		Department:   in.Department,
		PasswordHash: hash,
		RoleID:       role.ID,
		IsVerified:   true,
		IsActive:     !strings.EqualFold(row.Get("active"), "false"),
	}
	if err := s.userRepo.Create(db, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateCredential("User with these credentials already exists")
		}
		return nil, fmt.Errorf("Failed to create user: %v", err)
	}
	return user, nil
}

// readStagedSheet stages the upload to storage, parses it back and always removes the staged copy.
func readStagedSheet(ctx context.Context, store storage.Storage, prefix, tag string, file *FileInput, now time.Time) ([]tabular.Row, error) {
	if file == nil {
		return nil, apperrors.ErrNoFileUploaded
	}
	if _, err := tabular.DetectFormat(file.Name); err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	key, err := stageFile(ctx, store, prefix, tag, file, now)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Delete(context.WithoutCancel(ctx), key); err != nil {
			logger.CtxWithError(ctx, "failed to remove staged import", err, "key", key)
		}
	}()

	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	defer rc.Close()

	rows, err := tabular.Parse(file.Name, rc)
	if err != nil {
		if errors.Is(err, tabular.ErrEmptyFile) || errors.Is(err, tabular.ErrUnsupportedFormat) {
			return nil, apperrors.NewBadRequestError(err.Error())
		}
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("Failed to parse file: %v", err))
	}
	return rows, nil
}
