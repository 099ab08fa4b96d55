package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pds_backend/internal/auth"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/storage"
)

// NewTestDB opens an isolated in-memory SQLite database with every table
// migrated and reference data (roles, departments, agent types) seeded.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "open sqlite")

	require.NoError(t, db.AutoMigrate(models.All()...), "automigrate")
	require.NoError(t, repositories.NewRoleRepository().EnsureDefaults(db))
	require.NoError(t, repositories.NewEmployeeRepository().EnsureReferenceData(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// UserOpts describes a user to insert directly, bypassing registration.
type UserOpts struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	NatID      string
	Password   string
	Role       models.RoleName
	Unverified bool
	Inactive   bool
}

var seq atomic.Int64

// CreateUser inserts a user with a bcrypt-hashed password. Defaults: verified, active, USER.
func CreateUser(t *testing.T, db *gorm.DB, opts UserOpts) *models.User {
	t.Helper()

	n := seq.Add(1)
	if opts.Email == "" {
		opts.Email = fmt.Sprintf("user%d@test.com", n)
	}
	if opts.Phone == "" {
		opts.Phone = fmt.Sprintf("+26377%07d", n)
	}
	if opts.Password == "" {
		opts.Password = "Password#1"
	}
	if opts.Role == "" {
		opts.Role = models.RoleUser
	}
	if opts.FirstName == "" {
		opts.FirstName = "Test"
	}
	if opts.LastName == "" {
		opts.LastName = "User"
	}

	hash, err := auth.HashPassword(opts.Password)
	require.NoError(t, err)

	role, err := repositories.NewRoleRepository().FindByName(db, opts.Role)
	require.NoError(t, err)

	user := &models.User{
		FirstName:    opts.FirstName,
		LastName:     opts.LastName,
		Email:        strings.ToLower(opts.Email),
		PhoneNumber:  opts.Phone,
		Department:   "111",
		PasswordHash: hash,
		RoleID:       role.ID,
		IsVerified:   !opts.Unverified,
		IsActive:     !opts.Inactive,
	}
	if opts.NatID != "" {
		natID := opts.NatID
		user.NatID = &natID
	}
	require.NoError(t, repositories.NewUserRepository().Create(db, user))
	user.Role = role
	return user
}

// CreateEmployee inserts an active agent in department "111" with agent type LVC.
func CreateEmployee(t *testing.T, db *gorm.DB, agentName string) *models.Employee {
	t.Helper()

	var dept models.Department
	require.NoError(t, db.Where("department = ?", "111").First(&dept).Error)
	var agentType models.AgentType
	require.NoError(t, db.Where("agent_type = ?", "LVC").First(&agentType).Error)

	employee := &models.Employee{
		AgentName:    agentName,
		DepartmentID: dept.ID,
		AgentTypeID:  agentType.ID,
		IsActive:     true,
	}
	require.NoError(t, repositories.NewEmployeeRepository().Create(db, employee))
	return employee
}

// CountRows returns the number of rows in model's table.
func CountRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

// NewTestStorage returns local storage rooted in a per-test temp dir, along with that dir.
func NewTestStorage(t *testing.T) (storage.Storage, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(storage.Config{BasePath: dir})
	require.NoError(t, err)
	return store, dir
}

// CountFiles counts regular files under dir.
func CountFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}
