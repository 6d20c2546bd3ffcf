package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/pointledger/internal/point"
)

// RegisterPointRoutes mounts the point endpoints. Mutations run behind the
// supplied guards, in order.
func RegisterPointRoutes(r fiber.Router, h *point.Handler, mutationGuards ...fiber.Handler) {
	grp := r.Group("/point/:id")
	grp.Get("", h.Balance)
	grp.Get("/histories", h.History)

	charge := append(append([]fiber.Handler{}, mutationGuards...), h.Charge)
	use := append(append([]fiber.Handler{}, mutationGuards...), h.Use)
	grp.Patch("/charge", charge...)
	grp.Patch("/use", use...)
}
