package repositories

import (
	"errors"

	"pds_backend/internal/models"

	"gorm.io/gorm"
)

var ErrEmployeeNotFound = errors.New("employee not found")

// Seeded call-center reference data.
var (
	DefaultDepartments = []string{"111", "114"}
	DefaultAgentTypes  = []string{"LVC", "HVC"}
)

type EmployeeRepository interface {
	Create(db *gorm.DB, employee *models.Employee) error
	FindByID(db *gorm.DB, id uint) (*models.Employee, error)
	// FindByAgentNames resolves names in one query; unknown names are simply absent.
	FindByAgentNames(db *gorm.DB, names []string) ([]models.Employee, error)
	List(db *gorm.DB, activeOnly bool) ([]models.Employee, error)
	SetActive(db *gorm.DB, id uint, active bool) error
	ListDepartments(db *gorm.DB) ([]models.Department, error)
	ListAgentTypes(db *gorm.DB) ([]models.AgentType, error)
	DepartmentExists(db *gorm.DB, id uint) (bool, error)
	AgentTypeExists(db *gorm.DB, id uint) (bool, error)
	EnsureReferenceData(db *gorm.DB) error
}

type employeeRepository struct{}

func NewEmployeeRepository() EmployeeRepository {
	return &employeeRepository{}
}

func (r *employeeRepository) Create(db *gorm.DB, employee *models.Employee) error {
	return db.Omit("AgentType", "Department").Create(employee).Error
}

func (r *employeeRepository) FindByID(db *gorm.DB, id uint) (*models.Employee, error) {
	var employee models.Employee
	err := db.Preload("AgentType").Preload("Department").
		Where("employee_id = ?", id).First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) FindByAgentNames(db *gorm.DB, names []string) ([]models.Employee, error) {
	var employees []models.Employee
	if len(names) == 0 {
		return employees, nil
	}
	err := db.Where("agent_name IN ?", names).Find(&employees).Error
	return employees, err
}

func (r *employeeRepository) List(db *gorm.DB, activeOnly bool) ([]models.Employee, error) {
	q := db.Preload("AgentType").Preload("Department")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var employees []models.Employee
	err := q.Order("agent_name ASC").Find(&employees).Error
	return employees, err
}

func (r *employeeRepository) SetActive(db *gorm.DB, id uint, active bool) error {
	result := db.Model(&models.Employee{}).Where("employee_id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (r *employeeRepository) ListDepartments(db *gorm.DB) ([]models.Department, error) {
	var departments []models.Department
	err := db.Order("department ASC").Find(&departments).Error
	return departments, err
}

func (r *employeeRepository) ListAgentTypes(db *gorm.DB) ([]models.AgentType, error) {
	var types []models.AgentType
	err := db.Order("agent_type ASC").Find(&types).Error
	return types, err
}

func (r *employeeRepository) DepartmentExists(db *gorm.DB, id uint) (bool, error) {
	var count int64
	err := db.Model(&models.Department{}).Where("department_id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *employeeRepository) AgentTypeExists(db *gorm.DB, id uint) (bool, error) {
	var count int64
	err := db.Model(&models.AgentType{}).Where("agent_type_id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *employeeRepository) EnsureReferenceData(db *gorm.DB) error {
	for _, name := range DefaultDepartments {
		d := models.Department{Name: name}
		if err := db.Where(models.Department{Name: name}).FirstOrCreate(&d).Error; err != nil {
			return err
		}
	}
	for _, name := range DefaultAgentTypes {
		a := models.AgentType{Name: name}
		if err := db.Where(models.AgentType{Name: name}).FirstOrCreate(&a).Error; err != nil {
			return err
		}
	}
	return nil
}
