package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const ownerIDKey = "owner_id"

// OwnerAuth requires a Bearer JWT signed with secret (HS256) and exposes its
// subject as the owner id.
func OwnerAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return unauthorized(c)
		}

		owner, err := ParseOwnerToken(secret, raw)
		if err != nil {
			return unauthorized(c)
		}

		c.Locals(ownerIDKey, owner)
		return c.Next()
	}
}

// GetOwnerID returns the owner authenticated by OwnerAuth.
func GetOwnerID(c *fiber.Ctx) string {
	owner, _ := c.Locals(ownerIDKey).(string)
	return owner
}

// ParseOwnerToken validates raw and returns its subject.
func ParseOwnerToken(secret []byte, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// IssueOwnerToken signs a token for owner. Login flows live outside this
// service; this exists for local tooling and tests.
func IssueOwnerToken(secret []byte, owner string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   owner,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="powerqr"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "unauthorized",
	})
}
