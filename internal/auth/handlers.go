package auth

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the moderation helpers. Callers gate the router
// with JWTMiddleware and RequireRole.
func RegisterRoutes(r fiber.Router, middleware ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, middleware...), func(c *fiber.Ctx) error {
		target, err := ParseRole(c.Params("role"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		actor, _ := RoleOf(c)
		actions := AllowedActions(actor, target, c.QueryBool("owns_restaurant"))
		if actions == nil {
			actions = []Action{}
		}
		return c.JSON(fiber.Map{
			"actor":   actor,
			"target":  target,
			"actions": actions,
		})
	})
	r.Get("/actions/:role", handlers...)
}
