package subscription

import (
	"errors"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/sublyhq/subly/app/models"
)

// Record is one ledger row joined with the plan columns the read paths need.
// The join happens at read time so plan price changes never rewrite history.
type Record struct {
	ID        uint       `json:"subscription_id"`
	UUID      string     `json:"uuid"`
	UserID    uint       `json:"user_id"`
	PlanID    uint       `json:"plan_id"`
	PlanName  string     `json:"plan_name"`
	PlanPrice float64    `json:"plan_price"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// Repository provides the DB operations used by the lifecycle service.
type Repository interface {
	GetActivePlan(planID uint) (*models.Plan, error)
	// GetActive returns the user's qualifying subscription row joined with
	// plan name and price, nil when there is none.
	GetActive(userID uint, now time.Time) (*Record, error)
	GetHistory(userID uint, limit, offset int) ([]Record, error)
	CountByUser(userID uint) (int64, error)
	Insert(sub *models.Subscription) error
	// CloseActive closes the user's qualifying row and reports whether a row
	// was affected.
	CloseActive(userID uint, now time.Time) (bool, error)
	// ReleaseExpired clears the active marker from rows whose end date has
	// passed without an explicit cancel, freeing the unique key for the next
	// subscribe.
	ReleaseExpired(userID uint, now time.Time) error
	// Transaction runs fn against a repository bound to one transaction.
	Transaction(fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a subscription repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetActivePlan(planID uint) (*models.Plan, error) {
	var p models.Plan
	err := r.db.Where("id = ? AND is_active = ?", planID, true).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Hand-optimized single-row lookup: the (user_id, is_active) index narrows the
// scan, the plan join only touches the indexed primary key.
const activeQuery = `
SELECT s.id, s.uuid, s.user_id, s.plan_id, p.name AS plan_name, p.price AS plan_price,
       s.start_date, s.end_date, s.is_active, s.created_at
FROM subscriptions s
JOIN subscription_plans p ON s.plan_id = p.id
WHERE s.user_id = ?
  AND s.is_active = 1
  AND (s.end_date IS NULL OR s.end_date > ?)
LIMIT 1`

func (r *gormRepository) GetActive(userID uint, now time.Time) (*Record, error) {
	var records []Record
	err := r.db.Raw(activeQuery, userID, now).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

const historyQuery = `
SELECT s.id, s.uuid, s.user_id, s.plan_id, p.name AS plan_name, p.price AS plan_price,
       s.start_date, s.end_date, s.is_active, s.created_at
FROM subscriptions s
JOIN subscription_plans p ON s.plan_id = p.id
WHERE s.user_id = ?
ORDER BY s.created_at DESC, s.id DESC
LIMIT ? OFFSET ?`

func (r *gormRepository) GetHistory(userID uint, limit, offset int) ([]Record, error) {
	var records []Record
	err := r.db.Raw(historyQuery, userID, limit, offset).Scan(&records).Error
	return records, err
}

// CountByUser runs independently of the page fetch so the pagination math is
// exact.
func (r *gormRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *gormRepository) Insert(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

// Direct SQL UPDATE: closing never reads the row first, the qualifying
// predicate decides and the affected row count reports the outcome.
const closeActiveStmt = `
UPDATE subscriptions
SET is_active = 0, end_date = ?, active_user_id = NULL
WHERE user_id = ?
  AND is_active = 1
  AND (end_date IS NULL OR end_date > ?)`

func (r *gormRepository) CloseActive(userID uint, now time.Time) (bool, error) {
	res := r.db.Exec(closeActiveStmt, now, userID, now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// A row that expires passively keeps its active marker until the next write
// for that user comes along; this statement hands the unique key back.
const releaseExpiredStmt = `
UPDATE subscriptions
SET is_active = 0, active_user_id = NULL
WHERE user_id = ?
  AND active_user_id IS NOT NULL
  AND end_date IS NOT NULL
  AND end_date <= ?`

func (r *gormRepository) ReleaseExpired(userID uint, now time.Time) error {
	return r.db.Exec(releaseExpiredStmt, userID, now).Error
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

// IsDuplicateKey reports whether the error is a unique constraint violation.
// The unique active_user_id index turns the second concurrent insert for a
// user into exactly this error.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldrv.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
