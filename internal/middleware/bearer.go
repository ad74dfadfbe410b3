package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const subjectLocal = "subject"

// Verifier resolves an access token to its subject.
type Verifier func(token string) (subject string, err error)

// Bearer rejects requests without a valid bearer token with 401.
func Bearer(verify Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "Authentication credentials were not provided.")
		}
		subject, err := verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil || subject == "" {
			return fiber.NewError(http.StatusUnauthorized, "Given token not valid for any token type")
		}
		c.Locals(subjectLocal, subject)
		return c.Next()
	}
}

// SubjectFrom returns the subject stored by Bearer.
func SubjectFrom(c *fiber.Ctx) string {
	subject, _ := c.Locals(subjectLocal).(string)
	return subject
}
