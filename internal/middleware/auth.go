package middleware

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/certrenew/internal/config"
	"github.com/example/certrenew/internal/models"
	"github.com/example/certrenew/internal/utils"
)

const (
	identityContextKey = "currentIdentity"
	// bearerPrefix is matched case-sensitively; clients send "BEARER <token>".
	bearerPrefix = "BEARER"
)

// Identity is the verified caller attached to the request by Authenticate.
type Identity struct {
	ID                 uuid.UUID
	RegistrationNumber string
	PhoneNumber        string
	Role               models.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// Authenticate validates the bearer token, loads the referenced user and,
// when roles are given, requires the user's role to be one of them.
func Authenticate(cfg *config.Config, db *gorm.DB, roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" || !strings.HasPrefix(authHeader, bearerPrefix) {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized, Authorization header is missing")
		}

		parts := strings.Fields(authHeader)
		if len(parts) < 2 || parts[0] != bearerPrefix {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized, token is missing")
		}

		claims, err := utils.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized, token expired")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized, Invalid token")
		}

		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized, token expired")
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, "id = ?", claims.ID()).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "User not found")
			}
			return err
		}

		if len(roles) > 0 && !slices.Contains(roles, user.Role) {
			return fiber.NewError(fiber.StatusForbidden, fmt.Sprintf("Forbidden, %s can not access this resource", user.Role))
		}

		c.Locals(identityContextKey, Identity{
			ID:                 user.ID,
			RegistrationNumber: claims.RegistrationNumber,
			PhoneNumber:        claims.PhoneNumber,
			Role:               user.Role,
		})
		return c.Next()
	}
}

// CurrentIdentity extracts the authenticated caller from context.
func CurrentIdentity(c *fiber.Ctx) (Identity, bool) {
	identity, ok := c.Locals(identityContextKey).(Identity)
	return identity, ok
}
