package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/sublyhq/subly/internal/pkg/subscription"
	"github.com/sublyhq/subly/internal/pkg/usercontext"
)

type subscribeRequest struct {
	PlanID   uint `json:"plan_id"`
	Duration int  `json:"duration"` // in 30-day months, 0 = open-ended
}

var subscriptionService *subscription.Service

// InitializeSubscriptionController wires the lifecycle service. Called once
// from the router after the database is up.
func InitializeSubscriptionController(svc *subscription.Service) {
	subscriptionService = svc
}

// HandleSubscribe subscribes the authenticated user to a plan.
func HandleSubscribe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Malformed request body"})
	}
	if req.PlanID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Missing plan_id"})
	}
	if req.Duration < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Invalid duration"})
	}

	record, err := subscriptionService.Subscribe(c.Context(), userCtx.UserID, req.PlanID, req.Duration)
	if err != nil {
		return subscriptionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":         "Subscription successful",
		"subscription_id": record.ID,
		"uuid":            record.UUID,
		"plan":            record.PlanName,
		"end_date":        record.EndDate,
	})
}

// HandleGetActiveSubscription returns the user's active subscription, joined
// with its plan.
func HandleGetActiveSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	record, err := subscriptionService.GetActive(c.Context(), userCtx.UserID)
	if err != nil {
		log.Printf("subscriptions: active lookup failed: %v", err)
		return internalError(c)
	}
	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "No active subscription found"})
	}

	return c.JSON(record)
}

// HandleGetSubscriptionHistory returns one page of the user's subscription
// history, newest first.
func HandleGetSubscriptionHistory(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 10)

	history, err := subscriptionService.GetHistory(c.Context(), userCtx.UserID, page, perPage)
	if err != nil {
		return subscriptionError(c, err)
	}

	return c.JSON(history)
}

// HandleCancelSubscription closes the user's active subscription.
func HandleCancelSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	if err := subscriptionService.Cancel(c.Context(), userCtx.UserID); err != nil {
		return subscriptionError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Subscription cancelled successfully"})
}

// HandleUpgradeSubscription moves the user to a new plan: the current ledger
// row is closed and a new one opened in a single transaction.
func HandleUpgradeSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Malformed request body"})
	}
	if req.PlanID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Missing plan_id"})
	}
	if req.Duration < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Invalid duration"})
	}

	record, err := subscriptionService.Upgrade(c.Context(), userCtx.UserID, req.PlanID, req.Duration)
	if err != nil {
		return subscriptionError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Subscription upgraded successfully",
		"subscription_id": record.ID,
		"uuid":            record.UUID,
		"plan":            record.PlanName,
		"end_date":        record.EndDate,
	})
}

// subscriptionError maps the service error taxonomy onto HTTP responses.
func subscriptionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, subscription.ErrPlanNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Invalid plan"})
	case errors.Is(err, subscription.ErrNoActiveSubscription):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No active subscription found"})
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "You already have an active subscription"})
	case errors.Is(err, subscription.ErrSamePlan):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Already subscribed to this plan"})
	case errors.Is(err, subscription.ErrInvalidPagination):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Invalid pagination parameters"})
	default:
		log.Printf("subscriptions: operation failed: %v", err)
		return internalError(c)
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
}
