// Package web serves the sorter's observability surface: health and
// metrics endpoints, a JSON status API, and a websocket feed of
// decisions for dashboard clients. It never participates in the
// pipeline itself.
package web

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-sorter/internal/log"
	"github.com/teslashibe/go-sorter/pkg/hub"
	"github.com/teslashibe/go-sorter/pkg/pipeline"
)

// StatsProvider exposes pipeline run counters to the server.
type StatsProvider interface {
	Stats() pipeline.Snapshot
}

// Server is the status HTTP/websocket server.
type Server struct {
	app   *fiber.App
	port  int
	stats StatsProvider
	feed  *hub.Hub
}

// NewServer creates the server and registers all routes.
func NewServer(port int, stats StatsProvider) *Server {
	s := &Server{
		port:  port,
		stats: stats,
		feed:  hub.New("events"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-sorter",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// PublishEvent pushes a decision event to all feed clients.
func (s *Server) PublishEvent(e pipeline.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Error("encode feed event", "error", err)
		return
	}
	s.feed.Broadcast(payload)
}

// Start runs the feed hub and blocks serving HTTP.
func (s *Server) Start() error {
	go s.feed.Run()
	log.Info("status server listening", "port", s.port)
	return s.app.Listen(fmt.Sprintf(":%d", s.port))
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	snap := s.stats.Stats()
	return c.JSON(fiber.Map{
		"status": "ok",
		"runs":   snap.RunsStarted,
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.stats.Stats())
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	snap := s.stats.Stats()
	return c.SendString(fmt.Sprintf(`# HELP sorter_runs_started Total pipeline runs started
# TYPE sorter_runs_started counter
sorter_runs_started %d

# HELP sorter_runs_succeeded Total pipeline runs that produced a decision
# TYPE sorter_runs_succeeded counter
sorter_runs_succeeded %d

# HELP sorter_runs_failed Total pipeline runs aborted by a stage failure
# TYPE sorter_runs_failed counter
sorter_runs_failed %d

# HELP sorter_feed_clients Connected decision feed clients
# TYPE sorter_feed_clients gauge
sorter_feed_clients %d
`, snap.RunsStarted, snap.RunsSucceeded, snap.RunsFailed, s.feed.ClientCount()))
}

func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.feed, c)
	client.Run()
}
