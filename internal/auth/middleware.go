package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "user_id"

// JWTMiddleware validates bearer tokens and stores the user id in locals.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
			return secretBytes, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := parsed.Claims.(*Claims)
		if !ok || !parsed.Valid || claims.UserID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token invalid")
		}

		SetPrincipal(c, claims.UserID)
		return c.Next()
	}
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

// SetPrincipal marks userID as the authenticated user of the request.
func SetPrincipal(c *fiber.Ctx, userID string) {
	c.Locals(principalKey, userID)
}

// PrincipalFrom returns the authenticated user id set by JWTMiddleware.
func PrincipalFrom(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals(principalKey).(string)
	return id, ok && id != ""
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
