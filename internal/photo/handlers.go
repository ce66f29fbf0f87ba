package photo

import (
	"context"

	"backend-waytrack/internal/trip"

	"github.com/gofiber/fiber/v2"
)

// TripGetter looks up trip records. Satisfied by *trip.Service.
type TripGetter interface {
	GetTrip(ctx context.Context, id string) (trip.Trip, error)
}

func RegisterRoutes(r fiber.Router, store *Store, locator *Locator, trips TripGetter, authMiddleware fiber.Handler) {
	r.Get("/:tripID", func(c *fiber.Ctx) error {
		locations, err := store.Locations(c.Context(), c.Params("tripID"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		return c.JSON(locations)
	})

	r.Post("/:tripID", authMiddleware, func(c *fiber.Ctx) error {
		var req Photo
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.MediumURL == "" && req.FullURL == "" {
			return fiber.NewError(fiber.StatusBadRequest, "photo url required")
		}
		req.TripID = c.Params("tripID")

		saved, err := store.AddPhoto(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(saved)
	})

	r.Delete("/:tripID/:photoID", authMiddleware, func(c *fiber.Ctx) error {
		removed, err := store.DeletePhoto(c.Context(), c.Params("tripID"), c.Params("photoID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if !removed {
			return fiber.NewError(fiber.StatusNotFound, "photo not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:tripID/process", authMiddleware, func(c *fiber.Ctx) error {
		t, err := trips.GetTrip(c.Context(), c.Params("tripID"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}

		photos, err := store.Photos(c.Context(), t.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if len(photos) == 0 {
			return c.JSON(fiber.Map{"success": false, "message": "no photos attached to this trip"})
		}

		locations := locator.Locate(c.Context(), t, photos)
		if err := store.SaveLocations(c.Context(), t.ID, locations); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(fiber.Map{
			"success":          true,
			"photos_processed": len(photos),
			"photos_placed":    len(locations),
			"locations":        locations,
		})
	})

	r.Get("/:tripID/debug", authMiddleware, func(c *fiber.Ctx) error {
		t, err := trips.GetTrip(c.Context(), c.Params("tripID"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}

		photos, err := store.Photos(c.Context(), t.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		locations, err := store.Locations(c.Context(), t.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		details := make([]fiber.Map, 0, len(photos))
		for _, p := range photos {
			meta := locator.metadata(p)
			entry := fiber.Map{
				"id":           p.ID,
				"caption":      p.Caption,
				"exif_has_gps": meta.HasGPS,
			}
			if !meta.CaptureTime.IsZero() {
				entry["exif_timestamp"] = meta.CaptureTime
			}
			if meta.HasGPS {
				entry["exif_gps"] = []float64{meta.Latitude, meta.Longitude}
			}
			details = append(details, entry)
		}

		return c.JSON(fiber.Map{
			"trip_id":               t.ID,
			"photos_attached":       len(photos),
			"photos_with_locations": len(locations),
			"photos":                details,
			"stored_locations":      locations,
		})
	})
}
