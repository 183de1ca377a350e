package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gazekey/pkg/decoder"
	"github.com/teslashibe/go-gazekey/pkg/hub"
	"github.com/teslashibe/go-gazekey/pkg/keyboard"
	"github.com/teslashibe/go-gazekey/pkg/landmarks"
	"github.com/teslashibe/go-gazekey/pkg/protocol"
	"github.com/teslashibe/go-gazekey/pkg/session"
)

// LayoutResponse describes the key grid.
type LayoutResponse struct {
	Keys    []string `json:"keys"`
	Columns int      `json:"columns"`
	Rows    int      `json:"rows"`
}

// TypeRequest is the body of /api/type.
type TypeRequest struct {
	Action string `json:"action"`
}

// TypeResponse is the controller state plus the command that fired, if any.
type TypeResponse struct {
	keyboard.Snapshot
	Command *decoder.Command `json:"command"`
}

// SensitivityRequest is the body of /api/update-sensitivity.
type SensitivityRequest struct {
	Sensitivity *float64 `json:"sensitivity"`
}

// LearnWordRequest is the body of /api/learn-word.
type LearnWordRequest struct {
	Word string `json:"word"`
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "ok",
		"session":         s.session.ID(),
		"tracking":        s.session.Tracking(),
		"frame_streams":   s.ingest.connections.Load(),
		"frames_streamed": s.ingest.frames.Load(),
		"frames_rejected": s.ingest.rejected.Load(),
		"status_clients":  s.statusHub.ClientCount(),
	})
}

// handleKeyboardLayout returns the key grid in cursor order
func (s *Server) handleKeyboardLayout(c *fiber.Ctx) error {
	return c.JSON(LayoutResponse{
		Keys:    keyboard.Layout(),
		Columns: keyboard.Columns,
		Rows:    keyboard.Rows,
	})
}

// handleState returns the session summary
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.session.State())
}

// handleToggleTracking flips frame processing
func (s *Server) handleToggleTracking(c *fiber.Ctx) error {
	on := s.session.ToggleTracking()
	s.Publish(session.Result{Status: trackingStatus(on), Controller: s.session.Snapshot()})
	return c.JSON(fiber.Map{"tracking": on})
}

// handleClearText empties the buffer
func (s *Server) handleClearText(c *fiber.Ctx) error {
	snap := s.session.Clear()
	s.Publish(session.Result{Status: session.StatusOK, Controller: snap})
	return c.JSON(snap)
}

// handleResetCursor moves the cursor to the first position
func (s *Server) handleResetCursor(c *fiber.Ctx) error {
	snap := s.session.Reset()
	s.Publish(session.Result{Status: session.StatusOK, Controller: snap})
	return c.JSON(snap)
}

// handleUpdateSensitivity changes gaze sensitivity. A body without a value
// just reports the current one.
func (s *Server) handleUpdateSensitivity(c *fiber.Ctx) error {
	var req SensitivityRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}

	if req.Sensitivity != nil {
		if err := s.session.SetSensitivity(*req.Sensitivity); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":       err.Error(),
				"sensitivity": s.session.Sensitivity(),
			})
		}
	}
	return c.JSON(fiber.Map{"sensitivity": s.session.Sensitivity()})
}

// handleType applies a manual action through the decoder cooldowns
func (s *Server) handleType(c *fiber.Ctx) error {
	var req TypeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	action, err := decoder.ParseAction(req.Action)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}

	res := s.session.Type(action)
	if res.Command != nil {
		s.Publish(res)
	}
	return c.JSON(TypeResponse{Snapshot: res.Controller, Command: res.Command})
}

// handleProcessFrame runs one posted frame through the pipeline
func (s *Server) handleProcessFrame(c *fiber.Ctx) error {
	var fd protocol.FrameData
	if err := c.BodyParser(&fd); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}

	res, err := s.ProcessFrame(c.UserContext(), &fd)
	if err != nil {
		return errorJSON(c, frameErrorStatus(err), err)
	}
	return c.JSON(protocol.StateFromResult(res))
}

// handleLearnWord adds a word to the vocabulary
func (s *Server) handleLearnWord(c *fiber.Ctx) error {
	var req LearnWordRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}

	if !s.session.LearnWord(req.Word) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "word must be lowercase letters only",
			"word":    req.Word,
			"learned": false,
		})
	}
	s.Publish(session.Result{Status: session.StatusOK, Controller: s.session.Snapshot()})
	return c.JSON(fiber.Map{"word": req.Word, "learned": true})
}

// handleStatusWS subscribes a dashboard to state changes
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)

	res := session.Result{Status: trackingStatus(s.session.Tracking()), Controller: s.session.Snapshot()}
	if msg, err := protocol.NewStateMessage(res); err == nil {
		if data, err := msg.Bytes(); err == nil {
			client.Send(hub.Text(data))
		}
	}

	client.Run()
}

// handleCameraWS subscribes a dashboard to preview frames
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}

func trackingStatus(on bool) session.Status {
	if on {
		return session.StatusOK
	}
	return session.StatusTrackingOff
}

func frameErrorStatus(err error) int {
	var se *landmarks.StatusError
	switch {
	case errors.Is(err, ErrNoExtractor):
		return fiber.StatusNotImplemented
	case errors.As(err, &se):
		return fiber.StatusBadGateway
	case errors.Is(err, protocol.ErrEmptyFrame), errors.Is(err, protocol.ErrNoDimensions):
		return fiber.StatusBadRequest
	}
	return fiber.StatusUnprocessableEntity
}
