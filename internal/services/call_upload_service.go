package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pds_backend/internal/logger"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/storage"
	"pds_backend/internal/tabular"
	"pds_backend/internal/validator"
	"pds_backend/pkg/apperrors"
)

const (
	defaultLeaderboardLimit = 10
	defaultPerformersLimit  = 5

	MsgNoCallRecords = "No call records found"
)

var callReportRequired = []string{"agent_name", "total_inbound_calls", "total_outbound_calls"}

// CallUploadService imports call-center reports all-or-nothing and serves the leaderboards.
type CallUploadService interface {
	ProcessCallReport(ctx context.Context, db *gorm.DB, actor Actor, file *FileInput, meta dto.CallReportMeta) (*dto.CallUploadResponse, error)
	CancelUpload(ctx context.Context, db *gorm.DB, actor Actor, uploadID uint) (*dto.CancelUploadResponse, error)
	ListUploads(ctx context.Context, db *gorm.DB, q dto.UploadListQuery) (*dto.PaginatedResponse, error)
	GetUploadDetails(ctx context.Context, db *gorm.DB, uploadID uint) (*dto.UploadDetails, error)
	GetFilteredCalls(ctx context.Context, db *gorm.DB, q dto.LeaderboardQuery) (*dto.LeaderboardResponse, error)
	GetPerformers(ctx context.Context, db *gorm.DB, q dto.LeaderboardQuery) (*dto.PerformersResponse, error)
}

type CallUploadServiceImpl struct {
	uploadRepo   repositories.FileUploadRepository
	callRepo     repositories.CallRepository
	employeeRepo repositories.EmployeeRepository
	audit        AuditService
	storage      storage.Storage
	now          func() time.Time
}

func NewCallUploadService(
	uploadRepo repositories.FileUploadRepository,
	callRepo repositories.CallRepository,
	employeeRepo repositories.EmployeeRepository,
	audit AuditService,
	store storage.Storage,
) *CallUploadServiceImpl {
	return &CallUploadServiceImpl{
		uploadRepo:   uploadRepo,
		callRepo:     callRepo,
		employeeRepo: employeeRepo,
		audit:        audit,
		storage:      store,
		now:          time.Now,
	}
}

// SetClock overrides the time source; used by tests.
func (s *CallUploadServiceImpl) SetClock(now func() time.Time) {
	s.now = now
}

type callRow struct {
	agentName string
	inbound   int
	outbound  int
}

// ProcessCallReport stores the file, records a PENDING batch and imports every row in one
// transaction. Any failure leaves zero call rows and the batch CANCELLED.
func (s *CallUploadServiceImpl) ProcessCallReport(ctx context.Context, db *gorm.DB, actor Actor, file *FileInput, meta dto.CallReportMeta) (*dto.CallUploadResponse, error) {
	db = db.WithContext(ctx)
	now := s.now().UTC()

	slot, err := parseReportSlot(meta, now)
	if err != nil {
		return nil, err
	}
	if file == nil || file.Content == nil {
		return nil, apperrors.ErrNoFileUploaded
	}
	if _, err := tabular.DetectFormat(file.Name); err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	content, err := io.ReadAll(file.Content)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	key := storage.BuildKey("uploads/csv", "calls", file.Name, now)
	if err := s.storage.Save(ctx, key, bytes.NewReader(content), file.ContentType); err != nil {
		return nil, apperrors.InternalError(err)
	}

	// The batch row lives outside the import transaction so CANCELLED survives a rollback.
	upload := &models.FileUpload{
		FileName:    file.Name,
		FilePath:    key,
		UploadTime:  now,
		UploadedBy:  actor.UserID,
		Status:      models.UploadPending,
		Description: strings.TrimSpace(meta.Description),
	}
	if err := s.uploadRepo.Create(db, upload); err != nil {
		return nil, apperrors.InternalError(err)
	}

	count, err := s.importReport(ctx, db, actor, upload, slot, content)
	if err != nil {
		s.markCancelled(ctx, db, upload.ID)
		logger.CtxWarn(ctx, "call report rejected", "upload_id", upload.ID, "file", file.Name, "error", err.Error())
		return nil, passAppError(err)
	}

	logger.CtxInfo(ctx, "call report processed", "upload_id", upload.ID, "records", count)
	return &dto.CallUploadResponse{
		UploadID:    upload.ID,
		FileName:    upload.FileName,
		RecordCount: count,
		ReportDate:  meta.ReportDate,
		ReportTime:  meta.ReportTime,
	}, nil
}

func parseReportSlot(meta dto.CallReportMeta, now time.Time) (repositories.ReportSlot, error) {
	problems := map[string]string{}
	if !validator.IsReportTime(meta.ReportTime) {
		problems["report_time"] = "Must be a time in HH:MM format"
	}
	if !validator.IsReportDate(meta.ReportDate) {
		problems["report_date"] = "Must be a date in YYYY-MM-DD format"
	}
	if len(problems) > 0 {
		return repositories.ReportSlot{}, apperrors.ValidationError(problems)
	}

	at, err := time.ParseInLocation("2006-01-02 15:04", meta.ReportDate+" "+meta.ReportTime, time.UTC)
	if err != nil {
		return repositories.ReportSlot{}, apperrors.ValidationError(map[string]string{"report_date": err.Error()})
	}
	if at.After(now) {
		return repositories.ReportSlot{}, apperrors.New(apperrors.CodeValidationFailed, "validation",
			"Report date cannot be in the future", http.StatusBadRequest)
	}

	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return repositories.ReportSlot{Date: datatypes.Date(day), ReportTime: meta.ReportTime}, nil
}

// parseCallRows validates every row and reports all problems at once.
func parseCallRows(fileName string, content []byte) ([]callRow, error) {
	rows, err := tabular.Parse(fileName, bytes.NewReader(content))
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	var (
		out  = make([]callRow, 0, len(rows))
		errs error
	)
	for i, row := range rows {
		rowNum := i + 1
		if missing := row.Missing(callReportRequired...); len(missing) > 0 {
			errs = multierr.Append(errs, fmt.Errorf("Row %d: Missing required fields: %s", rowNum, strings.Join(missing, ", ")))
			continue
		}
		inbound, inErr := parseCount(row.Get("total_inbound_calls"))
		if inErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("Row %d: total_inbound_calls must be a non-negative integer", rowNum))
		}
		outbound, outErr := parseCount(row.Get("total_outbound_calls"))
		if outErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("Row %d: total_outbound_calls must be a non-negative integer", rowNum))
		}
		if inErr != nil || outErr != nil {
			continue
		}
		out = append(out, callRow{agentName: row.Get("agent_name"), inbound: inbound, outbound: outbound})
	}

	if errs != nil {
		list := multierr.Errors(errs)
		details := make([]string, 0, len(list))
		for _, e := range list {
			details = append(details, e.Error())
		}
		return nil, apperrors.New(apperrors.CodeMissingFields, "import",
			fmt.Sprintf("Call report contains %d invalid row(s)", len(details)),
			http.StatusBadRequest,
		).WithDetails(details)
	}
	return out, nil
}

func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("negative count")
	}
	return n, nil
}

func (s *CallUploadServiceImpl) importReport(ctx context.Context, db *gorm.DB, actor Actor, upload *models.FileUpload, slot repositories.ReportSlot, content []byte) (int, error) {
	rows, err := parseCallRows(upload.FileName, content)
	if err != nil {
		return 0, err
	}

	tx, err := begin(ctx, db)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	names := make([]string, 0, len(rows))
	seen := make(map[string]int, len(rows))
	var repeated []string
	for _, r := range rows {
		seen[r.agentName]++
		switch seen[r.agentName] {
		case 1:
			names = append(names, r.agentName)
		case 2:
			repeated = append(repeated, r.agentName)
		}
	}

	employees, err := s.employeeRepo.FindByAgentNames(tx, names)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	byName := make(map[string]models.Employee, len(employees))
	ids := make([]uint, 0, len(employees))
	for _, e := range employees {
		byName[e.AgentName] = e
		ids = append(ids, e.ID)
	}

	var unknown []string
	for _, n := range names {
		if _, ok := byName[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return 0, apperrors.ErrUnknownEntities("agents", unknown)
	}

	existing, err := s.callRepo.FindExisting(tx, slot, ids)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	duplicates := append([]string{}, repeated...)
	for _, c := range existing {
		if c.Employee != nil && seen[c.Employee.AgentName] < 2 {
			duplicates = append(duplicates, c.Employee.AgentName)
		}
	}
	if len(duplicates) > 0 {
		return 0, apperrors.ErrDuplicateEntry(
			"The following agents already have records for this date and time: "+strings.Join(duplicates, ", "),
			duplicates,
		)
	}

	calls := make([]models.Call, 0, len(rows))
	for _, r := range rows {
		calls = append(calls, models.Call{
			Date:               slot.Date,
			ReportTime:         slot.ReportTime,
			EmployeeID:         byName[r.agentName].ID,
			TotalInboundCalls:  r.inbound,
			TotalOutboundCalls: r.outbound,
			UploadID:           upload.ID,
		})
	}
	if err := s.callRepo.CreateBatch(tx, calls); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, apperrors.ErrDuplicateEntry("Call records already exist for this date and time", nil)
		}
		return 0, apperrors.InternalError(err)
	}

	count := len(calls)
	if err := s.uploadRepo.UpdateStatus(tx, upload.ID, models.UploadProcessed, &count); err != nil {
		return 0, apperrors.InternalError(err)
	}
	if err := s.audit.Record(ctx, tx, actor, models.AuditCSVUpload,
		fmt.Sprintf("Uploaded call report %s with %d records", upload.FileName, count)); err != nil {
		return 0, err
	}
	if err := commit(tx); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *CallUploadServiceImpl) markCancelled(ctx context.Context, db *gorm.DB, uploadID uint) {
	if err := s.uploadRepo.UpdateStatus(db, uploadID, models.UploadCancelled, nil); err != nil {
		logger.CtxWithError(ctx, "failed to mark upload cancelled", err, "upload_id", uploadID)
	}
}

// CancelUpload deletes the batch's calls and marks it CANCELLED, atomically.
func (s *CallUploadServiceImpl) CancelUpload(ctx context.Context, db *gorm.DB, actor Actor, uploadID uint) (*dto.CancelUploadResponse, error) {
	tx, err := begin(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	upload, err := s.uploadRepo.FindByIDForUpdate(tx, uploadID)
	if err != nil {
		return nil, uploadError(err)
	}
	if !upload.Status.CanTransitionTo(models.UploadCancelled) {
		return nil, apperrors.ErrUploadAlreadyCancelled
	}

	count, err := s.callRepo.CountByUpload(tx, uploadID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if _, err := s.callRepo.DeleteByUpload(tx, uploadID); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.uploadRepo.UpdateStatus(tx, uploadID, models.UploadCancelled, nil); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.audit.Record(ctx, tx, actor, models.AuditCSVUploadCancel,
		fmt.Sprintf("Cancelled upload %d (%s) with %d records", upload.ID, upload.FileName, count)); err != nil {
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "upload cancelled", "upload_id", uploadID, "deleted_records", count)
	return &dto.CancelUploadResponse{UploadID: uploadID, DeletedRecords: count}, nil
}

func (s *CallUploadServiceImpl) ListUploads(ctx context.Context, db *gorm.DB, q dto.UploadListQuery) (*dto.PaginatedResponse, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	uploads, total, err := s.uploadRepo.List(db.WithContext(ctx), repositories.UploadFilter{
		Status:   models.UploadStatus(q.Status),
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewPaginatedResponse(uploads, total, page, limit), nil
}

func (s *CallUploadServiceImpl) GetUploadDetails(ctx context.Context, db *gorm.DB, uploadID uint) (*dto.UploadDetails, error) {
	db = db.WithContext(ctx)
	upload, err := s.uploadRepo.FindByID(db, uploadID)
	if err != nil {
		return nil, uploadError(err)
	}
	summary, err := s.uploadRepo.EmployeeSummary(db, uploadID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if summary == nil {
		summary = []repositories.UploadEmployeeSummary{}
	}
	return &dto.UploadDetails{Upload: upload, Employees: summary}, nil
}

// GetFilteredCalls ranks agents for the most recent report slot.
func (s *CallUploadServiceImpl) GetFilteredCalls(ctx context.Context, db *gorm.DB, q dto.LeaderboardQuery) (*dto.LeaderboardResponse, error) {
	db = db.WithContext(ctx)
	sortBy := leaderboardSort(q.SortBy)
	top := q.Top == nil || *q.Top

	resp := &dto.LeaderboardResponse{SortBy: string(sortBy), Top: top, Data: []repositories.LeaderboardRow{}}

	slot, ok, err := s.callRepo.LatestSlot(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		resp.Message = MsgNoCallRecords
		return resp, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	rows, err := s.callRepo.Leaderboard(db, repositories.LeaderboardQuery{
		Slot:         slot,
		DepartmentID: q.DepartmentID,
		AgentTypeID:  q.AgentTypeID,
		SortBy:       sortBy,
		Top:          top,
		Limit:        limit,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp.ReportDate = time.Time(slot.Date).Format(time.DateOnly)
	resp.ReportTime = slot.ReportTime
	if rows != nil {
		resp.Data = rows
	}
	return resp, nil
}

// GetPerformers returns the top and bottom of the latest slot in one call.
func (s *CallUploadServiceImpl) GetPerformers(ctx context.Context, db *gorm.DB, q dto.LeaderboardQuery) (*dto.PerformersResponse, error) {
	if q.Limit <= 0 {
		q.Limit = defaultPerformersLimit
	}
	topFlag, bottomFlag := true, false

	q.Top = &topFlag
	best, err := s.GetFilteredCalls(ctx, db, q)
	if err != nil {
		return nil, err
	}
	q.Top = &bottomFlag
	worst, err := s.GetFilteredCalls(ctx, db, q)
	if err != nil {
		return nil, err
	}

	return &dto.PerformersResponse{
		Message:          best.Message,
		ReportDate:       best.ReportDate,
		ReportTime:       best.ReportTime,
		TopPerformers:    best.Data,
		BottomPerformers: worst.Data,
	}, nil
}

func leaderboardSort(raw string) repositories.LeaderboardSort {
	switch repositories.LeaderboardSort(strings.ToLower(raw)) {
	case repositories.SortInbound:
		return repositories.SortInbound
	case repositories.SortOutbound:
		return repositories.SortOutbound
	default:
		return repositories.SortTotal
	}
}

func uploadError(err error) error {
	if errors.Is(err, repositories.ErrUploadNotFound) {
		return apperrors.NewNotFoundError("uploads", "Upload record not found")
	}
	return apperrors.InternalError(err)
}
