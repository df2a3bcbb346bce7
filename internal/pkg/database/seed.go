package database

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/sublyhq/subly/app/models"
	"github.com/sublyhq/subly/internal/pkg/env"
)

// SeedDefaults creates the admin user and the default plan catalog when they
// are missing. Safe to run on every startup.
func SeedDefaults() {
	if DB == nil {
		log.Print("seed: database not initialized, skipping")
		return
	}
	seedAdminUser(DB)
	seedDefaultPlans(DB)
}

func seedAdminUser(db *gorm.DB) {
	var admin models.User
	err := db.Where("username = ?", "admin").First(&admin).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("seed: admin lookup failed: %v", err)
		return
	}

	admin = models.User{
		Username: "admin",
		Email:    "admin@subly.io",
		Role:     models.ROLE_ADMIN,
	}
	if err := admin.SetPassword(env.GetEnv("APP_ADMIN_PASSWORD", "admin12345")); err != nil {
		log.Printf("seed: admin password hash failed: %v", err)
		return
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("seed: admin user creation failed: %v", err)
		return
	}
	log.Print("seed: admin user created")
}

func seedDefaultPlans(db *gorm.DB) {
	var count int64
	if err := db.Model(&models.Plan{}).Count(&count).Error; err != nil {
		log.Printf("seed: plan count failed: %v", err)
		return
	}
	if count > 0 {
		return
	}

	plans := []models.Plan{
		{
			Name:            "Sandbox",
			Price:           0.00,
			BillingInterval: models.BillingIntervalMonth,
			Description:     "Basic access with limited features",
			Features:        "Access to basic content;500 API calls per day;No premium features",
			IsActive:        true,
		},
		{
			Name:            "Startup",
			Price:           15.00,
			BillingInterval: models.BillingIntervalMonth,
			Description:     "Standard access with more features",
			Features:        "All Free features;1 Million API calls;Standard support",
			IsActive:        true,
		},
		{
			Name:            "Pro",
			Price:           100.00,
			BillingInterval: models.BillingIntervalMonth,
			Description:     "Full access with all features",
			Features:        "All Startup features;Unlimited API calls;Standard support;Advanced analytics",
			IsActive:        true,
		},
		{
			Name:            "Enterprise",
			Price:           300.00,
			BillingInterval: models.BillingIntervalMonth,
			Description:     "Full access with all features",
			Features:        "All Pro features;Unlimited API calls;Priority support;Advanced analytics;BYOC",
			IsActive:        true,
		},
	}

	for i := range plans {
		if err := db.Create(&plans[i]).Error; err != nil {
			log.Printf("seed: plan %q creation failed: %v", plans[i].Name, err)
		}
	}
	log.Printf("seed: default plan catalog created (%d plans)", len(plans))
}
