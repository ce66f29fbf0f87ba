package server

import (
	"context"
	"time"

	"backend-waytrack/internal/auth"
	"backend-waytrack/internal/config"
	"backend-waytrack/internal/photo"
	"backend-waytrack/internal/route"
	"backend-waytrack/internal/stats"
	"backend-waytrack/internal/stream"
	"backend-waytrack/internal/traccar"
	"backend-waytrack/internal/trip"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB)
	ownerOnly := auth.RequireOwner(authSvc)

	client := traccar.NewClient(s.Cfg.TraccarURL, s.Cfg.TraccarCredential, s.Cfg.TraccarDeviceID)

	var routeStore route.SnapshotStore = route.NewMemoryStore()
	var statsStore stats.SnapshotStore = stats.NewMemoryStore()
	if s.Redis != nil {
		routeStore = route.NewRedisStore(s.Redis)
		statsStore = stats.NewRedisStore(s.Redis)
	}

	routeCache := route.NewCache(routeStore, client, time.Duration(s.Cfg.RouteCacheMaxAgeSeconds)*time.Second)
	engine := stats.NewEngine(routeCache, statsStore, s.Cfg.PlaceThresholdKm)

	trips := trip.NewService(s.DB, routeCache)
	trips.DefaultColor = s.Cfg.DefaultRouteColor

	photoStore := photo.NewStore(s.DB)
	locator := photo.NewLocator(routeCache, time.Duration(s.Cfg.PhotoMatchToleranceSecs)*time.Second)

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc)
	trip.RegisterRoutes(s.App.Group("/trips"), trips, ownerOnly)
	route.RegisterRoutes(s.App.Group("/tracking"), &route.Handlers{
		Cache:            routeCache,
		Client:           client,
		Trips:            trips,
		Hub:              s.Stream,
		PrivacyDelayDays: s.Cfg.PrivacyDelayDays,
		Recompute: func(ctx context.Context, t trip.Trip) error {
			engine.Recompute(ctx, t)
			return nil
		},
	}, ownerOnly)
	stats.RegisterRoutes(s.App.Group("/stats"), engine, trips)
	photo.RegisterRoutes(s.App.Group("/photos"), photoStore, locator, trips, ownerOnly)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
