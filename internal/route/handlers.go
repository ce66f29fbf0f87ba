package route

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend-waytrack/internal/stream"
	"backend-waytrack/internal/traccar"
	"backend-waytrack/internal/trip"

	"github.com/gofiber/fiber/v2"
)

// TrackingClient is the provider surface the handlers need beyond the cache.
// Satisfied by *traccar.Client.
type TrackingClient interface {
	CurrentPosition(ctx context.Context) (traccar.Position, error)
	PositionsBetween(ctx context.Context, from, to time.Time) ([]traccar.Position, error)
	TestConnection(ctx context.Context) error
}

// TripGetter looks up trip records. Satisfied by *trip.Service.
type TripGetter interface {
	GetTrip(ctx context.Context, id string) (trip.Trip, error)
}

type Handlers struct {
	Cache  *Cache
	Client TrackingClient
	Trips  TripGetter
	Hub    *stream.Hub
	// PrivacyDelayDays hides the most recent days of a live trip from public
	// responses. The cache itself always holds undelayed data.
	PrivacyDelayDays int
	// Recompute refreshes trip statistics after an admin route refresh.
	Recompute func(ctx context.Context, t trip.Trip) error
	Now       func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func RegisterRoutes(r fiber.Router, h *Handlers, authMiddleware fiber.Handler) {
	r.Get("/:tripID/route", func(c *fiber.Ctx) error {
		t, err := h.Trips.GetTrip(c.Context(), c.Params("tripID"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}

		positions := h.Cache.Route(c.Context(), t)
		if t.Status == trip.StatusLive && h.PrivacyDelayDays > 0 {
			cutoff := h.now().AddDate(0, 0, -h.PrivacyDelayDays)
			positions = dropAfter(positions, cutoff)
		}

		return c.JSON(fiber.Map{
			"status": t.Status,
			"route":  routeFeature(t, positions),
			"points": len(positions),
		})
	})

	r.Get("/:tripID/position", func(c *fiber.Ctx) error {
		t, err := h.Trips.GetTrip(c.Context(), c.Params("tripID"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}

		// Only live trips expose a current position.
		if t.Status != trip.StatusLive {
			return c.JSON(fiber.Map{"status": t.Status, "position": nil})
		}

		if h.PrivacyDelayDays > 0 {
			return h.delayedPosition(c, t)
		}

		pos, err := h.Client.CurrentPosition(c.Context())
		if err != nil {
			return positionError(c, err)
		}

		h.broadcast(t.ID, pos)
		return c.JSON(fiber.Map{"status": t.Status, "position": pos})
	})

	r.Post("/:tripID/refresh", authMiddleware, func(c *fiber.Ctx) error {
		t, err := h.Trips.GetTrip(c.Context(), c.Params("tripID"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}

		positions, err := h.Cache.Refresh(c.Context(), t)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}

		if h.Recompute != nil {
			if err := h.Recompute(c.Context(), t); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"error":   err.Error(),
				})
			}
		}

		return c.JSON(fiber.Map{"success": true, "points": len(positions)})
	})

	r.Get("/:tripID/debug", authMiddleware, func(c *fiber.Ctx) error {
		t, err := h.Trips.GetTrip(c.Context(), c.Params("tripID"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}

		return c.JSON(fiber.Map{
			"trip": fiber.Map{
				"id":         t.ID,
				"status":     t.Status,
				"start_time": t.StartTime,
				"end_time":   t.EndTime,
			},
			"connection_test": probe(func() error {
				return h.Client.TestConnection(c.Context())
			}),
			"position_test": probe(func() error {
				_, err := h.Client.CurrentPosition(c.Context())
				return err
			}),
			"route_test": h.routeProbe(c.Context(), t),
		})
	})
}

func (h *Handlers) delayedPosition(c *fiber.Ctx, t trip.Trip) error {
	if t.StartTime == nil {
		return c.JSON(fiber.Map{"status": t.Status, "position": nil})
	}

	cutoff := h.now().AddDate(0, 0, -h.PrivacyDelayDays)
	positions, err := h.Client.PositionsBetween(c.Context(), *t.StartTime, cutoff)
	if err != nil {
		return positionError(c, err)
	}
	if len(positions) == 0 {
		return c.JSON(fiber.Map{
			"status":   t.Status,
			"position": nil,
			"delayed":  true,
			"message":  "no position data available for the delayed timeframe",
		})
	}

	pos := positions[len(positions)-1]
	return c.JSON(fiber.Map{
		"status":     t.Status,
		"position":   pos,
		"delayed":    true,
		"delay_days": h.PrivacyDelayDays,
	})
}

func (h *Handlers) routeProbe(ctx context.Context, t trip.Trip) fiber.Map {
	if t.StartTime == nil {
		return fiber.Map{"error": "trip has no start time"}
	}
	end := h.now()
	if !t.Active() && t.EndTime != nil {
		end = *t.EndTime
	}
	positions, err := h.Client.PositionsBetween(ctx, *t.StartTime, end)
	if err != nil {
		return fiber.Map{"error": err.Error()}
	}
	return fiber.Map{"success": true, "points": len(positions)}
}

func (h *Handlers) broadcast(tripID string, pos traccar.Position) {
	if h.Hub == nil {
		return
	}
	payload, err := json.Marshal(pos)
	if err != nil {
		return
	}
	h.Hub.Broadcast(tripID, payload)
}

// positionError keeps configuration problems distinguishable from upstream
// failures so the caller can show a setup prompt.
func positionError(c *fiber.Ctx, err error) error {
	var cfgErr *traccar.ConfigError
	if errors.As(err, &cfgErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":          cfgErr.Error(),
			"not_configured": true,
		})
	}
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
}

func probe(fn func() error) fiber.Map {
	if err := fn(); err != nil {
		return fiber.Map{"error": err.Error()}
	}
	return fiber.Map{"success": true}
}

func dropAfter(positions []traccar.Position, cutoff time.Time) []traccar.Position {
	kept := make([]traccar.Position, 0, len(positions))
	for _, p := range positions {
		if !p.Timestamp.After(cutoff) {
			kept = append(kept, p)
		}
	}
	return kept
}

// routeFeature renders the route as a GeoJSON LineString feature for
// line-drawing on the map.
func routeFeature(t trip.Trip, positions []traccar.Position) fiber.Map {
	coords := make([][]float64, 0, len(positions))
	for _, p := range positions {
		coords = append(coords, []float64{p.Longitude, p.Latitude})
	}
	return fiber.Map{
		"type": "Feature",
		"properties": fiber.Map{
			"trip_id": t.ID,
			"status":  t.Status,
			"color":   t.RouteColor,
		},
		"geometry": fiber.Map{
			"type":        "LineString",
			"coordinates": coords,
		},
	}
}
