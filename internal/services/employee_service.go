package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services/dto"
	"pds_backend/pkg/apperrors"
)

// EmployeeService manages the agents that call reports are reconciled against.
type EmployeeService interface {
	ListEmployees(ctx context.Context, db *gorm.DB, activeOnly bool) ([]models.Employee, error)
	CreateEmployee(ctx context.Context, db *gorm.DB, req *dto.CreateEmployeeRequest) (*models.Employee, error)
	SetEmployeeActive(ctx context.Context, db *gorm.DB, id uint, active bool) (*models.Employee, error)
	ListDepartments(ctx context.Context, db *gorm.DB) ([]models.Department, error)
	ListAgentTypes(ctx context.Context, db *gorm.DB) ([]models.AgentType, error)
}

type EmployeeServiceImpl struct {
	employeeRepo repositories.EmployeeRepository
}

func NewEmployeeService(employeeRepo repositories.EmployeeRepository) *EmployeeServiceImpl {
	return &EmployeeServiceImpl{employeeRepo: employeeRepo}
}

func (s *EmployeeServiceImpl) ListEmployees(ctx context.Context, db *gorm.DB, activeOnly bool) ([]models.Employee, error) {
	employees, err := s.employeeRepo.List(db.WithContext(ctx), activeOnly)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return employees, nil
}

func (s *EmployeeServiceImpl) CreateEmployee(ctx context.Context, db *gorm.DB, req *dto.CreateEmployeeRequest) (*models.Employee, error) {
	db = db.WithContext(ctx)

	ok, err := s.employeeRepo.DepartmentExists(db, req.DepartmentID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		return nil, apperrors.ValidationError(map[string]string{"department_id": "Unknown department"})
	}
	ok, err = s.employeeRepo.AgentTypeExists(db, req.AgentTypeID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		return nil, apperrors.ValidationError(map[string]string{"agent_type_id": "Unknown agent type"})
	}

	employee := &models.Employee{
		AgentName:    strings.TrimSpace(req.AgentName),
		DepartmentID: req.DepartmentID,
		AgentTypeID:  req.AgentTypeID,
		ImageURL:     strings.TrimSpace(req.ImageURL),
		IsActive:     true,
	}
	if err := s.employeeRepo.Create(db, employee); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateEntry("Agent with this name already exists", []string{employee.AgentName})
		}
		return nil, apperrors.InternalError(err)
	}
	return s.find(db, employee.ID)
}

func (s *EmployeeServiceImpl) SetEmployeeActive(ctx context.Context, db *gorm.DB, id uint, active bool) (*models.Employee, error) {
	db = db.WithContext(ctx)
	if err := s.employeeRepo.SetActive(db, id, active); err != nil {
		return nil, employeeError(err)
	}
	return s.find(db, id)
}

func (s *EmployeeServiceImpl) find(db *gorm.DB, id uint) (*models.Employee, error) {
	employee, err := s.employeeRepo.FindByID(db, id)
	if err != nil {
		return nil, employeeError(err)
	}
	return employee, nil
}

func (s *EmployeeServiceImpl) ListDepartments(ctx context.Context, db *gorm.DB) ([]models.Department, error) {
	departments, err := s.employeeRepo.ListDepartments(db.WithContext(ctx))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return departments, nil
}

func (s *EmployeeServiceImpl) ListAgentTypes(ctx context.Context, db *gorm.DB) ([]models.AgentType, error) {
	types, err := s.employeeRepo.ListAgentTypes(db.WithContext(ctx))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return types, nil
}

func employeeError(err error) error {
	if errors.Is(err, repositories.ErrEmployeeNotFound) {
		return apperrors.NewNotFoundError("employees", "Employee not found")
	}
	return apperrors.InternalError(err)
}
