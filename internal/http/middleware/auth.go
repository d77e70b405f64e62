package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"dossierapi/internal/identity"
)

// ActorLocalKey is the key used to store the resolved actor in Fiber's context locals.
const ActorLocalKey = "actor"

// Auth resolves the Authorization bearer token into an identity.Actor and
// stores it in the context locals. Requests without a valid token are
// rejected with 401 before any handler runs.
func Auth(resolver identity.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authorization header required")
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "bearer token required")
		}

		actor, err := resolver.Resolve(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(ActorLocalKey, actor)
		return c.Next()
	}
}

// RequireRole rejects requests whose resolved actor does not carry the
// given role. Must run after Auth.
func RequireRole(role identity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromCtx(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		if actor.Role != role {
			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// ActorFromCtx returns the actor stored by Auth, if any.
func ActorFromCtx(c *fiber.Ctx) (identity.Actor, bool) {
	actor, ok := c.Locals(ActorLocalKey).(identity.Actor)
	return actor, ok
}
