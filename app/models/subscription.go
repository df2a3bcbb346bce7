package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription is one row of the append-mostly subscription ledger. Rows are
// opened by subscribe/upgrade and closed (never deleted) by cancel/upgrade.
//
// ActiveUserID carries the user id while the row is active and NULL once the
// row is closed. Together with its unique index it guarantees at most one
// active subscription per user: of two concurrent writers the second insert
// fails with a duplicate key error. MySQL has no partial unique indexes, this
// nullable column is the equivalent construction.
type Subscription struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         string     `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID       uint       `gorm:"not null;index:idx_user_active,priority:1;index:idx_subscriptions_user_created,priority:1" json:"user_id"`
	PlanID       uint       `gorm:"not null;index" json:"plan_id"`
	Plan         *Plan      `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	StartDate    time.Time  `gorm:"not null;index:idx_subscription_dates,priority:1" json:"start_date"`
	EndDate      *time.Time `gorm:"type:timestamp;default:null;index:idx_subscription_dates,priority:2" json:"end_date"`
	IsActive     bool       `gorm:"not null;default:true;index:idx_user_active,priority:2" json:"is_active"`
	ActiveUserID *uint      `gorm:"uniqueIndex:ux_subscriptions_active_user" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index:idx_subscriptions_user_created,priority:2" json:"created_at"`
}

func (s *Subscription) TableName() string {
	return "subscriptions"
}

// BeforeCreate assigns the public reference if the caller did not.
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == "" {
		s.UUID = uuid.New().String()
	}
	return nil
}

// IsExpired reports whether the subscription carries an end date in the past.
func (s *Subscription) IsExpired() bool {
	if s.EndDate == nil {
		return false
	}
	return s.EndDate.Before(time.Now())
}

// IsOpen reports whether the row still qualifies as the user's active
// subscription: flagged active and not past its end date.
func (s *Subscription) IsOpen() bool {
	return s.IsActive && !s.IsExpired()
}
