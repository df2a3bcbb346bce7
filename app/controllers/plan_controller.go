package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sublyhq/subly/app/models"
	"github.com/sublyhq/subly/app/repository"
	"github.com/sublyhq/subly/internal/pkg/cache"
)

const (
	planCacheKey = "plans:active"
	planCacheTTL = 60 * time.Second
)

type createPlanRequest struct {
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	BillingInterval string  `json:"billing_interval"`
	Description     string  `json:"description"`
	Features        string  `json:"features"`
}

// HandleListPlans returns the active plan catalog ordered by price. The
// catalog changes rarely, so the serialized list is cached for a short TTL.
func HandleListPlans(c *fiber.Ctx) error {
	if cached, err := cache.Get(planCacheKey); err == nil {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	} else if !cache.IsNotFound(err) {
		log.Printf("plans: cache read failed: %v", err)
	}

	repo := repository.GetGlobalFactory().GetPlanRepository()
	plans, err := repo.List()
	if err != nil {
		log.Printf("plans: list failed: %v", err)
		return internalError(c)
	}

	payload, err := json.Marshal(plans)
	if err != nil {
		return internalError(c)
	}
	if err := cache.Set(planCacheKey, payload, planCacheTTL); err != nil {
		log.Printf("plans: cache write failed: %v", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

// HandleCreatePlan creates a new plan. Admin only, enforced by the router.
func HandleCreatePlan(c *fiber.Ctx) error {
	var req createPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Malformed request body"})
	}

	interval := req.BillingInterval
	if interval == "" {
		interval = models.BillingIntervalMonth
	}

	plan := &models.Plan{
		Name:            req.Name,
		Price:           req.Price,
		BillingInterval: interval,
		Description:     req.Description,
		Features:        req.Features,
		IsActive:        true,
	}
	if err := plan.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": err.Error()})
	}

	repo := repository.GetGlobalFactory().GetPlanRepository()

	if _, err := repo.GetByName(plan.Name); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Plan with this name already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("plans: name lookup failed: %v", err)
		return internalError(c)
	}

	if err := repo.Create(plan); err != nil {
		log.Printf("plans: create failed: %v", err)
		return internalError(c)
	}

	dropPlanCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Plan created successfully",
		"plan_id": plan.ID,
		"name":    plan.Name,
		"price":   plan.Price,
	})
}

// HandleDeactivatePlan soft-deactivates a plan. Historical subscriptions keep
// referencing it; it just stops being offered. Admin only.
func HandleDeactivatePlan(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Invalid plan id"})
	}

	repo := repository.GetGlobalFactory().GetPlanRepository()
	if _, err := repo.GetByID(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Plan not found"})
		}
		log.Printf("plans: lookup failed: %v", err)
		return internalError(c)
	}

	if err := repo.Deactivate(uint(id)); err != nil {
		log.Printf("plans: deactivate failed: %v", err)
		return internalError(c)
	}

	dropPlanCache()

	return c.JSON(fiber.Map{"message": "Plan deactivated"})
}

func dropPlanCache() {
	if err := cache.Delete(planCacheKey); err != nil {
		log.Printf("plans: cache invalidation failed: %v", err)
	}
}
