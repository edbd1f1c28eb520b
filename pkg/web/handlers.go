package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/eyeproctor/pkg/attention"
	"github.com/teslashibe/eyeproctor/pkg/events"
	"github.com/teslashibe/eyeproctor/pkg/hub"
	"github.com/teslashibe/eyeproctor/pkg/report"
)

// DistractionRequest is the body of POST /api/events/distraction.
type DistractionRequest struct {
	Seconds float64 `json:"duration_s"`
	Source  string  `json:"source"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handleReport(c *fiber.Ctx) error {
	st := s.ctrl.Status()
	if st.Result == nil {
		return fiber.NewError(fiber.StatusNotFound, "session not finalized")
	}
	return c.JSON(st.Result)
}

func (s *Server) handleDistraction(c *fiber.Ctx) error {
	var req DistractionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if req.Source == "" {
		req.Source = "dashboard"
	}

	d := events.Distraction{Seconds: req.Seconds, Source: req.Source}
	switch err := s.ctrl.Events().Submit(d); {
	case errors.Is(err, attention.ErrSessionClosed):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, attention.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, events.ErrQueueFull):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case err != nil:
		return err
	}

	if err := s.status.Publish(hub.KindDistraction, d); err != nil {
		s.logger.Warn("encode distraction", "error", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(d)
}

func (s *Server) handleFinalize(c *fiber.Ctx) error {
	return s.reportResult(c, s.ctrl.Finalize)
}

func (s *Server) handleRetry(c *fiber.Ctx) error {
	return s.reportResult(c, s.ctrl.RetryWrite)
}

// reportResult returns the result even when writing the file failed, so the
// dashboard can still show the verdict.
func (s *Server) reportResult(c *fiber.Ctx, fn func() (report.Result, error)) error {
	res, err := fn()
	if err == nil {
		return c.JSON(res)
	}

	var we *report.WriteError
	if !errors.As(err, &we) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":  err.Error(),
		"result": res,
	})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	s.ctrl.Reset()
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.status, c)
	if client == nil {
		c.Close()
		return
	}
	client.Run()
}
