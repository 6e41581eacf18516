package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/certrenew/internal/config"
	"github.com/example/certrenew/internal/models"
	"github.com/example/certrenew/internal/utils"
)

// EnsureAdmin creates the configured administrator if no user holds that
// email yet. It returns true when a new account was inserted.
func EnsureAdmin(conn *gorm.DB, admin config.AdminConfig) (bool, error) {
	if !admin.Enabled() {
		return false, nil
	}

	var existing models.User
	err := conn.Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := utils.HashPassword(admin.Password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	email := admin.Email
	user := models.User{
		RegistrationNumber: admin.RegistrationNumber,
		PhoneNumber:        admin.PhoneNumber,
		Email:              &email,
		PasswordHash:       hash,
		Role:               models.RoleAdmin,
	}
	if err := conn.Create(&user).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	return true, nil
}
