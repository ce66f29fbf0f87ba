package stats

import (
	"context"

	"backend-waytrack/internal/trip"

	"github.com/gofiber/fiber/v2"
)

// TripSource looks up trip records. Satisfied by *trip.Service.
type TripSource interface {
	GetTrip(ctx context.Context, id string) (trip.Trip, error)
	ListTrips(ctx context.Context) ([]trip.Trip, error)
}

func RegisterRoutes(r fiber.Router, engine *Engine, trips TripSource) {
	r.Get("/", func(c *fiber.Ctx) error {
		all, err := trips.ListTrips(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(engine.Totals(c.Context(), all))
	})

	r.Get("/:tripID", func(c *fiber.Ctx) error {
		t, err := trips.GetTrip(c.Context(), c.Params("tripID"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		return c.JSON(engine.Stats(c.Context(), t))
	})
}
