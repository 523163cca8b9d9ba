package auth

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"backend-mapssaver/internal/validation"
)

const loginRoute = "/api/login_check"

// RegisterRoutes mounts the account and token endpoints on the app root.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/api/register", func(c *fiber.Ctx) error {
		var req RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if _, err := svc.Register(c.UserContext(), req); err != nil {
			return renderError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":  "Successfully registered user",
			"redirect": loginRoute,
		})
	})

	r.Get("/account/confirm/:token/:email", func(c *fiber.Ctx) error {
		err := svc.Confirm(c.UserContext(), param(c, "token"), param(c, "email"))
		switch {
		case errors.Is(err, ErrInvalidToken):
			return c.Status(fiber.StatusBadRequest).SendString("Account can not be verified!")
		case errors.Is(err, ErrAlreadyActive):
			return c.Status(fiber.StatusBadRequest).SendString("Account has been already activated!")
		case err != nil:
			return err
		}
		c.Type("html")
		return c.SendString(`Account activated! Visit <a href="` +
			strings.TrimRight(svc.composer.ClientURL, "/") + `/login">Login Page</a>`)
	})

	r.Get("/api/account/resend/:email", func(c *fiber.Ctx) error {
		err := svc.ResendConfirmation(c.UserContext(), param(c, "email"))
		switch {
		case errors.Is(err, ErrUserNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown user account"})
		case errors.Is(err, ErrAlreadyActive):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Account has been already activated!"})
		case err != nil:
			return err
		}
		return c.JSON(fiber.Map{
			"message": "Activation link has been resend. Please check specified email address!",
		})
	})

	r.Get("/api/account/reset-password/:email", func(c *fiber.Ctx) error {
		if err := svc.RequestPasswordReset(c.UserContext(), param(c, "email")); err != nil {
			return renderError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Email with reset password link has been send."})
	})

	r.Put("/api/account/new-password/:token", func(c *fiber.Ctx) error {
		var req NewPasswordRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if err := svc.ResetPassword(c.UserContext(), param(c, "token"), req); err != nil {
			return renderError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":  "Password successfully changed",
			"redirect": loginRoute,
		})
	})

	r.Post(loginRoute, func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "email and password required")
		}
		_, resp, err := svc.Login(c.UserContext(), req)
		switch {
		case errors.Is(err, ErrAccountDisabled):
			return fiber.NewError(fiber.StatusUnauthorized, "Account is disabled.")
		case errors.Is(err, ErrInvalidCredentials):
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials.")
		case err != nil:
			return err
		}
		return c.JSON(resp)
	})

	r.Post("/api/token/refresh", func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "refresh_token required")
		}

		userID, err := svc.ValidateRefreshToken(c.UserContext(), req.RefreshToken)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		resp, err := svc.GenerateTokens(c.UserContext(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(resp)
	})

	r.Get("/api/token/verify", func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		userID, err := svc.ValidateAccessToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		return c.JSON(fiber.Map{"user_id": userID})
	})
}

func renderError(c *fiber.Ctx, err error) error {
	if verrs, ok := validation.AsErrors(err); ok {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(verrs)
	}
	if errors.Is(err, ErrUserNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "User not found.")
	}
	return err
}

func param(c *fiber.Ctx, key string) string {
	v := c.Params(key)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}
