package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/certrenew/internal/config"
)

const accessTokenCookie = "access_token"

// Clock returns the current time; handlers take one so tests can pin "today".
type Clock func() time.Time

func (c Clock) orDefault() Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// ErrorHandler serializes every error as {success:false, message} using the
// status carried by *fiber.Error, or 500 for anything else.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := err.Error()

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
		}

		if message == "" {
			message = "Something went wrong"
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"message": message,
		})
	}
}

// NotFound terminates the chain for routes nothing else matched.
func NotFound(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Cannot %s on %s", c.Method(), c.OriginalURL()))
}

// Health answers the root liveness probe.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Server is up and running",
	})
}

func respond(c *fiber.Ctx, status int, message string, payload fiber.Map) error {
	body := fiber.Map{
		"status":  "success",
		"success": true,
		"message": message,
	}
	for k, v := range payload {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

func setAuthCookie(c *fiber.Ctx, cfg *config.Config, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cfg.TokenExpires),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
	})
}
