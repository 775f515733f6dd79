package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// JwtMiddleware authenticates clinicians with HS256 bearer tokens. An empty secret
// disables authentication.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if secret == "" {
			return ctx.Next()
		}

		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		clinician, err := ParseClinicianToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
		ctx.Locals("clinician_id", clinician)
		return ctx.Next()
	}
}

// BearerToken returns the token from the Authorization header, or "".
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}
	return authHeader[7:]
}

// ParseClinicianToken verifies an HS256 token and returns the clinician id taken from
// the clinician_id claim, or the subject when that claim is absent.
func ParseClinicianToken(secret, tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	clinician, _ := claims.GetSubject()
	if id, ok := claims["clinician_id"].(string); ok && id != "" {
		clinician = id
	}
	return clinician, nil
}

// ClinicianID returns the authenticated clinician, or "" when auth is disabled.
func ClinicianID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals("clinician_id").(string)
	return id
}
