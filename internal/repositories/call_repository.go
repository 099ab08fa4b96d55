package repositories

import (
	"pds_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LeaderboardSort string

const (
	SortInbound  LeaderboardSort = "inbound"
	SortOutbound LeaderboardSort = "outbound"
	SortTotal    LeaderboardSort = "total"
)

// ReportSlot identifies one call report by date and HH:MM.
type ReportSlot struct {
	Date       datatypes.Date `json:"report_date"`
	ReportTime string         `json:"report_time"`
}

type LeaderboardQuery struct {
	Slot         ReportSlot
	DepartmentID uint
	AgentTypeID  uint
	SortBy       LeaderboardSort
	Top          bool
	Limit        int
}

type LeaderboardRow struct {
	CallID        uint   `json:"call_id"`
	EmployeeID    uint   `json:"employee_id"`
	AgentName     string `json:"agent_name"`
	ImageURL      string `json:"image_url"`
	DepartmentID  uint   `json:"department_id"`
	Department    string `json:"department"`
	AgentTypeID   uint   `json:"agent_type_id"`
	AgentType     string `json:"agent_type"`
	TotalInbound  int    `json:"total_inbound_calls"`
	TotalOutbound int    `json:"total_outbound_calls"`
	TotalCalls    int    `json:"total_calls"`
}

type CallRepository interface {
	CreateBatch(db *gorm.DB, calls []models.Call) error
	// FindExisting returns calls already stored for the slot among the given employees.
	FindExisting(db *gorm.DB, slot ReportSlot, employeeIDs []uint) ([]models.Call, error)
	CountByUpload(db *gorm.DB, uploadID uint) (int64, error)
	DeleteByUpload(db *gorm.DB, uploadID uint) (int64, error)
	// LatestSlot returns the newest (date, report_time); ok is false when no calls exist.
	LatestSlot(db *gorm.DB) (slot ReportSlot, ok bool, err error)
	Leaderboard(db *gorm.DB, q LeaderboardQuery) ([]LeaderboardRow, error)
}

type callRepository struct{}

func NewCallRepository() CallRepository {
	return &callRepository{}
}

const callInsertBatch = 500

func (r *callRepository) CreateBatch(db *gorm.DB, calls []models.Call) error {
	if len(calls) == 0 {
		return nil
	}
	return db.Omit("Employee", "Upload").CreateInBatches(calls, callInsertBatch).Error
}

func (r *callRepository) FindExisting(db *gorm.DB, slot ReportSlot, employeeIDs []uint) ([]models.Call, error) {
	var calls []models.Call
	if len(employeeIDs) == 0 {
		return calls, nil
	}
	err := db.Preload("Employee").
		Where("date = ? AND report_time = ? AND employee_id IN ?", slot.Date, slot.ReportTime, employeeIDs).
		Find(&calls).Error
	return calls, err
}

func (r *callRepository) CountByUpload(db *gorm.DB, uploadID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Call{}).Where("upload_id = ?", uploadID).Count(&count).Error
	return count, err
}

func (r *callRepository) DeleteByUpload(db *gorm.DB, uploadID uint) (int64, error) {
	result := db.Where("upload_id = ?", uploadID).Delete(&models.Call{})
	return result.RowsAffected, result.Error
}

func (r *callRepository) LatestSlot(db *gorm.DB) (ReportSlot, bool, error) {
	var slots []ReportSlot
	err := db.Model(&models.Call{}).
		Select("date, report_time").
		Order("date DESC, report_time DESC").
		Limit(1).
		Scan(&slots).Error
	if err != nil || len(slots) == 0 {
		return ReportSlot{}, false, err
	}
	return slots[0], true, nil
}

func (r *callRepository) Leaderboard(db *gorm.DB, q LeaderboardQuery) ([]LeaderboardRow, error) {
	dir := "DESC"
	if !q.Top {
		dir = "ASC"
	}

	var order string
	switch q.SortBy {
	case SortInbound:
		order = "c.total_inbound_calls " + dir
	case SortOutbound:
		order = "c.total_outbound_calls " + dir
	default:
		order = "(c.total_inbound_calls + c.total_outbound_calls) " + dir + ", c.total_inbound_calls " + dir
	}

	tx := db.Table("calls c").
		Select(`c.call_id, c.employee_id, e.agent_name, e.image_url,
			e.department_id, d.department, e.agent_type_id, a.agent_type,
			c.total_inbound_calls AS total_inbound, c.total_outbound_calls AS total_outbound,
			(c.total_inbound_calls + c.total_outbound_calls) AS total_calls`).
		Joins("JOIN employees e ON e.employee_id = c.employee_id").
		Joins("LEFT JOIN departments d ON d.department_id = e.department_id").
		Joins("LEFT JOIN agent_type a ON a.agent_type_id = e.agent_type_id").
		Where("c.date = ? AND c.report_time = ?", q.Slot.Date, q.Slot.ReportTime)

	if q.DepartmentID != 0 {
		tx = tx.Where("e.department_id = ?", q.DepartmentID)
	}
	if q.AgentTypeID != 0 {
		tx = tx.Where("e.agent_type_id = ?", q.AgentTypeID)
	}

	var rows []LeaderboardRow
	err := tx.Order(order).Order("e.agent_name ASC").Limit(q.Limit).Scan(&rows).Error
	return rows, err
}
