package route

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
	trips map[string]trip.Trip
}

func (f *fakeTrips) GetTrip(_ context.Context, id string) (trip.Trip, error) {
	t, ok := f.trips[id]
	if !ok {
		return trip.Trip{}, errors.New("not found")
	}
	return t, nil
}

type fakeClient struct {
	position    traccar.Position
	positionErr error
	positions   []traccar.Position
	historyErr  error
	connErr     error
}

func (f *fakeClient) CurrentPosition(_ context.Context) (traccar.Position, error) {
	return f.position, f.positionErr
}

func (f *fakeClient) PositionsBetween(_ context.Context, _, _ time.Time) ([]traccar.Position, error) {
	return f.positions, f.historyErr
}

func (f *fakeClient) TestConnection(_ context.Context) error {
	return f.connErr
}

func passthrough(c *fiber.Ctx) error { return c.Next() }

func testApp(h *Handlers) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/tracking"), h, passthrough)
	return app
}

func TestRouteEndpointGeoJSON(t *testing.T) {
	start := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	source := &spySource{positions: ascendingPositions(start, 3)}
	cache := NewCache(newMemStore(), source, 0)

	h := &Handlers{
		Cache:  cache,
		Client: &fakeClient{},
		Trips: &fakeTrips{trips: map[string]trip.Trip{
			"trip-1": {ID: "trip-1", Status: trip.StatusLive, StartTime: &start, RouteColor: "#3388ff"},
		}},
	}

	resp, err := testApp(h).Test(httptest.NewRequest(http.MethodGet, "/tracking/trip-1/route", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("route status: %v", err)
	}

	var body struct {
		Status string `json:"status"`
		Points int    `json:"points"`
		Route  struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string      `json:"type"`
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"route"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Points != 3 || body.Route.Geometry.Type != "LineString" || len(body.Route.Geometry.Coordinates) != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
	// GeoJSON ordering is lng, lat
	if body.Route.Geometry.Coordinates[1][0] != 1 || body.Route.Geometry.Coordinates[1][1] != 1 {
		t.Fatalf("unexpected coordinates: %v", body.Route.Geometry.Coordinates)
	}
}

func TestRouteEndpointPrivacyDelay(t *testing.T) {
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	start := now.Add(-10 * 24 * time.Hour)

	// two points older than the delay cutoff, one newer
	source := &spySource{positions: []traccar.Position{
		{Timestamp: now.Add(-5 * 24 * time.Hour)},
		{Timestamp: now.Add(-4 * 24 * time.Hour)},
		{Timestamp: now.Add(-time.Hour)},
	}}
	cache := NewCache(newMemStore(), source, 0)
	cache.now = func() time.Time { return now }

	h := &Handlers{
		Cache:  cache,
		Client: &fakeClient{},
		Trips: &fakeTrips{trips: map[string]trip.Trip{
			"trip-1": {ID: "trip-1", Status: trip.StatusLive, StartTime: &start},
		}},
		PrivacyDelayDays: 3,
		Now:              func() time.Time { return now },
	}

	resp, err := testApp(h).Test(httptest.NewRequest(http.MethodGet, "/tracking/trip-1/route", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("route status: %v", err)
	}
	var body struct {
		Points int `json:"points"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Points != 2 {
		t.Fatalf("expected delayed route with 2 points, got %d", body.Points)
	}
}

func TestPositionEndpointNonLive(t *testing.T) {
	h := &Handlers{
		Cache:  NewCache(newMemStore(), &spySource{}, 0),
		Client: &fakeClient{},
		Trips: &fakeTrips{trips: map[string]trip.Trip{
			"trip-1": {ID: "trip-1", Status: trip.StatusCompleted},
		}},
	}

	resp, err := testApp(h).Test(httptest.NewRequest(http.MethodGet, "/tracking/trip-1/position", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("position status: %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["position"] != nil {
		t.Fatalf("expected null position for non-live trip")
	}
}

func TestPositionEndpointLive(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	h := &Handlers{
		Cache:  NewCache(newMemStore(), &spySource{}, 0),
		Client: &fakeClient{position: traccar.Position{Latitude: 5, Longitude: 6, Course: 270}},
		Trips: &fakeTrips{trips: map[string]trip.Trip{
			"trip-1": {ID: "trip-1", Status: trip.StatusLive, StartTime: &start},
		}},
	}

	resp, err := testApp(h).Test(httptest.NewRequest(http.MethodGet, "/tracking/trip-1/position", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("position status: %v", err)
	}
	var body struct {
		Position traccar.Position `json:"position"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Position.Latitude != 5 || body.Position.Course != 270 {
		t.Fatalf("unexpected position: %+v", body.Position)
	}
}

func TestPositionEndpointNotConfigured(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	h := &Handlers{
		Cache:  NewCache(newMemStore(), &spySource{}, 0),
		Client: &fakeClient{positionErr: &traccar.ConfigError{Field: "server url"}},
		Trips: &fakeTrips{trips: map[string]trip.Trip{
			"trip-1": {ID: "trip-1", Status: trip.StatusLive, StartTime: &start},
		}},
	}

	resp, err := testApp(h).Test(httptest.NewRequest(http.MethodGet, "/tracking/trip-1/position", nil))
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["not_configured"] != true {
		t.Fatalf("expected not_configured flag, got %v", body)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	source := &spySource{positions: ascendingPositions(start, 4)}
	cache := NewCache(newMemStore(), source, 0)

	recomputed := false
	h := &Handlers{
		Cache:  cache,
		Client: &fakeClient{},
		Trips: &fakeTrips{trips: map[string]trip.Trip{
			"trip-1": {ID: "trip-1", Status: trip.StatusLive, StartTime: &start},
		}},
		Recompute: func(_ context.Context, _ trip.Trip) error {
			recomputed = true
			return nil
		},
	}

	resp, err := testApp(h).Test(httptest.NewRequest(http.MethodPost, "/tracking/trip-1/refresh", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status: %v", err)
	}
	var body struct {
		Success bool `json:"success"`
		Points  int  `json:"points"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Points != 4 || !recomputed {
		t.Fatalf("unexpected refresh result: %+v recomputed=%v", body, recomputed)
	}
}

func TestRefreshEndpointSurfacesError(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	source := &spySource{err: &traccar.UpstreamError{Status: 502, Body: "bad gateway"}}
	cache := NewCache(newMemStore(), source, 0)

	h := &Handlers{
		Cache:  cache,
		Client: &fakeClient{},
		Trips: &fakeTrips{trips: map[string]trip.Trip{
			"trip-1": {ID: "trip-1", Status: trip.StatusLive, StartTime: &start},
		}},
	}

	resp, err := testApp(h).Test(httptest.NewRequest(http.MethodPost, "/tracking/trip-1/refresh", nil))
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func TestDebugEndpoint(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	h := &Handlers{
		Cache: NewCache(newMemStore(), &spySource{}, 0),
		Client: &fakeClient{
			connErr:     &traccar.ConfigError{Field: "credentials"},
			positionErr: errors.New("no fix"),
			positions:   ascendingPositions(start, 2),
		},
		Trips: &fakeTrips{trips: map[string]trip.Trip{
			"trip-1": {ID: "trip-1", Status: trip.StatusLive, StartTime: &start},
		}},
	}

	resp, err := testApp(h).Test(httptest.NewRequest(http.MethodGet, "/tracking/trip-1/debug", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("debug status: %v", err)
	}
	var body map[string]map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["connection_test"]["error"] == "" {
		t.Fatalf("expected connection error detail")
	}
	if body["route_test"]["success"] != true {
		t.Fatalf("expected route probe success, got %v", body["route_test"])
	}
}

func TestUnknownTrip(t *testing.T) {
	h := &Handlers{
		Cache:  NewCache(newMemStore(), &spySource{}, 0),
		Client: &fakeClient{},
		Trips:  &fakeTrips{trips: map[string]trip.Trip{}},
	}

	resp, _ := testApp(h).Test(httptest.NewRequest(http.MethodGet, "/tracking/nope/route", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
