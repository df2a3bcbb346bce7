package controllers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sublyhq/subly/app/models"
	"github.com/sublyhq/subly/app/repository"
	"github.com/sublyhq/subly/internal/pkg/token"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

// HandleRegister creates a new user account.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Malformed request body"})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": err.Error()})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()

	if _, err := repo.GetByUsername(req.Username); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Username already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("register: username lookup failed: %v", err)
		return internalError(c)
	}

	if _, err := repo.GetByEmail(req.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Email already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("register: email lookup failed: %v", err)
		return internalError(c)
	}

	user, err := models.CreateUser(req.Username, req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": err.Error()})
	}

	if err := repo.Create(user); err != nil {
		log.Printf("register: create user failed: %v", err)
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Registration successful",
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// HandleLogin verifies credentials and issues an access token.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": "Malformed request body"})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": err.Error()})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()

	// notice: in production you should not inform the user
	// with detailed messages about login failures
	user, err := repo.GetByUsername(req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid username or password"})
		}
		log.Printf("login: user lookup failed: %v", err)
		return internalError(c)
	}

	if !user.CheckPassword(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid username or password"})
	}

	accessToken, err := token.Issue(user.ID, user.Role)
	if err != nil {
		log.Printf("login: token issue failed: %v", err)
		return internalError(c)
	}

	if err := repo.UpdateLastLogin(user.ID); err != nil {
		log.Printf("login: failed to update last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"message":      "Login successful",
		"access_token": accessToken,
		"user_id":      user.ID,
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Internal server error"})
}
