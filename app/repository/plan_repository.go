package repository

import (
	"github.com/sublyhq/subly/app/models"
	"gorm.io/gorm"
)

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// Create creates a new plan in the database
func (r *planRepository) Create(plan *models.Plan) error {
	return r.db.Create(plan).Error
}

// GetByID retrieves a plan by its ID
func (r *planRepository) GetByID(id uint) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetByName retrieves a plan by its unique name
func (r *planRepository) GetByName(name string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.Where("name = ?", name).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// List returns the active plan catalog ordered by price. The catalog is
// read-heavy, the raw statement fetches only the serialized columns.
func (r *planRepository) List() ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Raw(`
		SELECT id, name, price, billing_interval, description, features, is_active, created_at, updated_at
		FROM subscription_plans
		WHERE is_active = 1
		ORDER BY price ASC`).Scan(&plans).Error
	return plans, err
}

// Deactivate soft-deactivates a plan so historical subscriptions keep a valid
// reference
func (r *planRepository) Deactivate(id uint) error {
	return r.db.Model(&models.Plan{}).Where("id = ?", id).
		Update("is_active", false).Error
}

// Count returns the total number of plans
func (r *planRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Plan{}).Count(&count).Error
	return count, err
}
