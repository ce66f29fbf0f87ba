package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-waytrack/internal/traccar"
	"backend-waytrack/internal/trip"

	"github.com/gofiber/fiber/v2"
)

type fakeTrips struct {
	trips []trip.Trip
}

func (f *fakeTrips) GetTrip(_ context.Context, id string) (trip.Trip, error) {
	for _, t := range f.trips {
		if t.ID == id {
			return t, nil
		}
	}
	return trip.Trip{}, errors.New("not found")
}

func (f *fakeTrips) ListTrips(_ context.Context) ([]trip.Trip, error) {
	return f.trips, nil
}

func testApp(engine *Engine, trips TripSource) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/stats"), engine, trips)
	return app
}

func TestStatsEndpoint(t *testing.T) {
	routes := &fakeRoutes{positions: []traccar.Position{
		{Latitude: 0, Longitude: 0, Speed: 10},
		{Latitude: 1, Longitude: 0, Speed: 30},
	}}
	engine := NewEngine(routes, newMemStore(), 0)
	engine.now = func() time.Time { return at(12) }

	app := testApp(engine, &fakeTrips{trips: []trip.Trip{liveTrip("t1")}})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stats/t1", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status: %v", err)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Points != 2 || snap.MaxSpeed != 30 || snap.Duration != "4 hours" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestStatsEndpointUnknownTrip(t *testing.T) {
	app := testApp(NewEngine(&fakeRoutes{}, newMemStore(), 0), &fakeTrips{})

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/stats/nope", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestTotalsEndpoint(t *testing.T) {
	routes := &fakeRoutes{positions: []traccar.Position{
		{Latitude: 0, Longitude: 0},
		{Latitude: 1, Longitude: 0},
	}}
	engine := NewEngine(routes, newMemStore(), 0)
	engine.now = func() time.Time { return at(12) }

	app := testApp(engine, &fakeTrips{trips: []trip.Trip{
		liveTrip("t1"),
		{ID: "t2", Status: trip.StatusDraft},
	}})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stats/", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("totals status: %v", err)
	}

	var totals TotalsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&totals); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if totals.TotalTrips != 1 {
		t.Fatalf("total trips = %d", totals.TotalTrips)
	}
	if totals.TotalDistanceKm < 110 || totals.TotalDistanceKm > 112 {
		t.Fatalf("total distance = %v", totals.TotalDistanceKm)
	}
}
