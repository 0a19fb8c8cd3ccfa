package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// Scopes recognized by the service.
const (
	// ScopeSLARead allows reading compliance state for a ticket.
	ScopeSLARead = "sla:read"
	// ScopeSLATrigger allows starting a sweep outside its schedule.
	ScopeSLATrigger = "sla:trigger"
)

// RequireScope ensures the caller holds the given scope.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(http.StatusText(http.StatusUnauthorized))
		}
		if !principal.HasScope(scope) {
			return apperrors.NewForbidden("insufficient scope")
		}
		return c.Next()
	}
}
