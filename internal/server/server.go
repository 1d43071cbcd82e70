package server

import (
	"food4student-feed/internal/auth"
	"food4student-feed/internal/config"
	"food4student-feed/internal/feed"
	"food4student-feed/internal/restaurant"
	"food4student-feed/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	Redis    *redis.Client
	Stream   *stream.Hub
	Feeds    *feed.Registry
	Upstream *restaurant.Client
}

func NewServer(cfg config.Config, redisClient *redis.Client) (*Server, error) {
	upstream, err := restaurant.NewClient(cfg.RestaurantAPIURL, cfg.HTTPTimeout)
	if err != nil {
		return nil, err
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:      app,
		Cfg:      cfg,
		Redis:    redisClient,
		Stream:   stream.NewHub(redisClient),
		Upstream: upstream,
	}
	s.Feeds = feed.NewRegistry(s.backendFor, s.Stream, cfg.FeedPageSize)

	registerRoutes(s)
	return s, nil
}

// backendFor gives every user their own token and cache scope.
func (s *Server) backendFor(userID, token string) feed.Backend {
	return restaurant.NewCache(s.Upstream.WithToken(token), s.Redis, s.Cfg.PageCacheTTL, userID)
}

// Close tears down every open feed and stops the redis relay.
func (s *Server) Close() error {
	s.Feeds.CloseAll()
	return s.Stream.Close()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	staffOnly := auth.RequireRole(auth.RoleAdmin, auth.RoleModerator)

	feed.RegisterRoutes(s.App.Group("/feeds"), s.Feeds, jwtMiddleware, staffOnly)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware)
	auth.RegisterRoutes(s.App.Group("/admin"), jwtMiddleware, staffOnly)
}
