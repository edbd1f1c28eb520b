// Package web serves the proctor dashboard API: live session status over a
// websocket plus endpoints to report distractions and finish the exam.
package web

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/eyeproctor/internal/log"
	"github.com/teslashibe/eyeproctor/pkg/events"
	"github.com/teslashibe/eyeproctor/pkg/hub"
	"github.com/teslashibe/eyeproctor/pkg/report"
	"github.com/teslashibe/eyeproctor/pkg/session"
)

// Controller is the part of a session the dashboard drives.
// *session.Session satisfies it.
type Controller interface {
	Status() session.Status
	Events() *events.Integrator
	Finalize() (report.Result, error)
	RetryWrite() (report.Result, error)
	Reset()
}

// Server is the dashboard HTTP server.
type Server struct {
	app    *fiber.App
	port   string
	ctrl   Controller
	status *hub.Hub
	logger *slog.Logger
}

// NewServer creates a dashboard for ctrl. Register it with
// session.SetStateUpdater to stream status.
func NewServer(port string, ctrl Controller) *Server {
	s := &Server{
		port:   port,
		ctrl:   ctrl,
		status: hub.New("status"),
		logger: log.Component("web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Proctor Dashboard",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/report", s.handleReport)
	api.Post("/events/distraction", s.handleDistraction)
	api.Post("/session/finalize", s.handleFinalize)
	api.Post("/session/retry", s.handleRetry)
	api.Post("/session/reset", s.handleReset)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start runs the hub and serves until ctx is done or Listen fails.
func (s *Server) Start(ctx context.Context) error {
	go s.status.Run(ctx)
	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("shutdown", "error", err)
		}
	}()

	s.logger.Info("dashboard listening", "url", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("dashboard stopped", "error", err)
		}
	}()
}

// UpdateSession broadcasts st to websocket subscribers.
func (s *Server) UpdateSession(st session.Status) {
	if err := s.status.Publish(hub.KindStatus, st); err != nil {
		s.logger.Warn("encode status", "error", err)
	}
	if st.Result != nil {
		if err := s.status.Publish(hub.KindReport, st.Result); err != nil {
			s.logger.Warn("encode report", "error", err)
		}
	}
}

// Hub exposes the status hub, mainly for tests.
func (s *Server) Hub() *hub.Hub {
	return s.status
}

// App exposes the fiber app so callers can use app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
