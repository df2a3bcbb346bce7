package repository

import (
	"github.com/sublyhq/subly/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	UpdateLastLogin(id uint) error
	Count() (int64, error)
}

// PlanRepository defines the interface for plan catalog operations. Plans are
// read-heavy and soft-deactivated, never deleted.
type PlanRepository interface {
	Create(plan *models.Plan) error
	GetByID(id uint) (*models.Plan, error)
	GetByName(name string) (*models.Plan, error)
	List() ([]models.Plan, error)
	Deactivate(id uint) error
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User UserRepository
	Plan PlanRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
		Plan: NewPlanRepository(db),
	}
}
