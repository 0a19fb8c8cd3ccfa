package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Subject string
	Scopes  []string
}

// HasScope reports whether the principal holds the given scope.
func (p *Principal) HasScope(scope string) bool {
	for _, held := range p.Scopes {
		if held == scope {
			return true
		}
	}
	return false
}

// AuthMiddleware validates bearer tokens and operator API keys.
type AuthMiddleware struct {
	tokens     *TokenManager
	apiKeyHash string
}

// NewAuthMiddleware constructs middleware. apiKeyHash is the bcrypt hash
// of the operator key; an empty hash disables API key auth entirely.
func NewAuthMiddleware(tokens *TokenManager, apiKeyHash string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, apiKeyHash: apiKeyHash}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if key := c.Get("X-API-Key"); key != "" {
		if m.apiKeyHash == "" || VerifyAPIKey(m.apiKeyHash, key) != nil {
			return apperrors.NewUnauthorized("invalid api key")
		}
		c.Locals(principalKey, &Principal{
			Subject: "operator-api-key",
			Scopes:  []string{ScopeSLARead, ScopeSLATrigger},
		})
		return c.Next()
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing credentials")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{
		Subject: claims.Subject,
		Scopes:  claims.Scopes,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
