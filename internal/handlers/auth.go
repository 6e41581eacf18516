package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/certrenew/internal/config"
	"github.com/example/certrenew/internal/models"
	"github.com/example/certrenew/internal/utils"
)

// AuthHandler bundles dependencies for user authentication endpoints.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

type registerRequest struct {
	RegistrationNumber string `json:"registrationNumber" label:"Registration number" validate:"required"`
	PhoneNumber        string `json:"phoneNumber" label:"Phone number" validate:"required,len=10,numeric"`
	Password           string `json:"password" label:"Password" validate:"required,min=6"`
}

// Register creates a self-service user account and signs it in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.RegistrationNumber = strings.TrimSpace(req.RegistrationNumber)
	if req.RegistrationNumber == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Registration number is required")
	}

	db := h.db.WithContext(c.UserContext())

	var existing models.User
	if err := db.Where("registration_number = ?", req.RegistrationNumber).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Registration number already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		RegistrationNumber: req.RegistrationNumber,
		PhoneNumber:        req.PhoneNumber,
		PasswordHash:       passwordHash,
		Role:               models.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusBadRequest, "Registration number already exists")
		}
		return err
	}

	token, err := issueToken(h.cfg, &user)
	if err != nil {
		return err
	}
	setAuthCookie(c, h.cfg, token)

	return respond(c, fiber.StatusCreated, "Registration successful", fiber.Map{
		"user": fiber.Map{
			"id":                 user.ID,
			"registrationNumber": user.RegistrationNumber,
			"phoneNumber":        user.PhoneNumber,
		},
		"token": token,
	})
}

type loginRequest struct {
	RegistrationNumber string `json:"registrationNumber" label:"Registration number" validate:"required"`
	PhoneNumber        string `json:"phoneNumber" label:"Phone number" validate:"required"`
	Password           string `json:"password" label:"Password" validate:"required"`
}

// Login authenticates a user by registration number, phone number and password.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var user models.User
	err := h.db.WithContext(c.UserContext()).
		Where("registration_number = ? AND phone_number = ?", strings.TrimSpace(req.RegistrationNumber), req.PhoneNumber).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	token, err := issueToken(h.cfg, &user)
	if err != nil {
		return err
	}
	setAuthCookie(c, h.cfg, token)

	return respond(c, fiber.StatusOK, "Login successful", fiber.Map{
		"user": fiber.Map{
			"id":                 user.ID,
			"registrationNumber": user.RegistrationNumber,
			"phoneNumber":        user.PhoneNumber,
			"role":               user.Role,
		},
		"token": token,
	})
}

// Logout clears the access token cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(accessTokenCookie)
	return respond(c, fiber.StatusOK, "Logout successful", nil)
}

func issueToken(cfg *config.Config, user *models.User) (string, error) {
	token, err := utils.GenerateToken(cfg.JWTSecret, utils.TokenPayload{
		UserID:             user.ID,
		RegistrationNumber: user.RegistrationNumber,
		PhoneNumber:        user.PhoneNumber,
		Role:               string(user.Role),
	}, cfg.TokenExpires)
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}
	return token, nil
}
