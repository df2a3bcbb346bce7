package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BillingIntervalMonth = "month"
	BillingIntervalYear  = "year"
)

// Plan is a subscription tier. Plans are soft-deactivated instead of deleted so
// historical subscriptions keep a valid plan reference.
type Plan struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"uniqueIndex;type:varchar(64);not null" json:"name" validate:"required,min=2,max=64"`
	Price           float64   `gorm:"type:decimal(10,2);not null" json:"price" validate:"gte=0"`
	BillingInterval string    `gorm:"type:varchar(16);not null;default:'month'" json:"billing_interval" validate:"oneof=month year"`
	Description     string    `gorm:"type:text" json:"description" validate:"max=1000"`
	Features        string    `gorm:"type:text" json:"features"`
	IsActive        bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Plan) TableName() string {
	return "subscription_plans"
}

func (p *Plan) Validate() error {
	v := validator.New()

	return v.Struct(p)
}
