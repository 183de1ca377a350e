package web

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	framews "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-gazekey/pkg/decoder"
	"github.com/teslashibe/go-gazekey/pkg/protocol"
)

const (
	// maxFrameMessage fits a 478-point mesh or a VGA JPEG in base64.
	maxFrameMessage = 2 * 1024 * 1024

	// frameTimeout bounds extraction for one streamed image.
	frameTimeout = 2 * time.Second
)

// ingestStats counts streamed traffic across connections.
type ingestStats struct {
	connections atomic.Int64
	frames      atomic.Uint64
	rejected    atomic.Uint64
}

// framesHandler accepts a stream of frame and action messages and answers
// each with a state or error message carrying the request's ID.
func (s *Server) framesHandler() fiber.Handler {
	return framews.New(func(c *framews.Conn) {
		n := s.ingest.connections.Add(1)
		defer s.ingest.connections.Add(-1)

		remote := c.RemoteAddr().String()
		s.logger.Info("frame stream connected", "remote", remote, "streams", n)
		defer s.logger.Info("frame stream closed", "remote", remote)

		c.SetReadLimit(maxFrameMessage)

		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}

			reply := s.handleStreamMessage(data)
			out, err := reply.Bytes()
			if err != nil {
				s.logger.Warn("encode reply failed", "error", err)
				continue
			}
			if err := c.WriteMessage(framews.TextMessage, out); err != nil {
				return
			}
		}
	})
}

// handleStreamMessage processes one inbound message and builds the reply.
func (s *Server) handleStreamMessage(data []byte) *protocol.Message {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return s.rejectMessage(&protocol.Message{}, err)
	}

	switch msg.Type {
	case protocol.TypeFrame:
		fd, err := msg.GetFrameData()
		if err != nil {
			return s.rejectMessage(msg, err)
		}
		s.ingest.frames.Add(1)

		ctx, cancel := context.WithTimeout(s.ctx, frameTimeout)
		res, err := s.ProcessFrame(ctx, fd)
		cancel()
		if err != nil {
			return s.rejectMessage(msg, err)
		}
		return s.replyState(msg, protocol.StateFromResult(res))

	case protocol.TypeAction:
		ad, err := msg.GetActionData()
		if err != nil {
			return s.rejectMessage(msg, err)
		}
		action, err := decoder.ParseAction(ad.Action)
		if err != nil {
			return s.rejectMessage(msg, err)
		}
		res := s.session.Type(action)
		if res.Command != nil {
			s.Publish(res)
		}
		return s.replyState(msg, protocol.StateFromResult(res))

	case protocol.TypePing:
		pong, err := protocol.NewPongMessage(msg)
		if err != nil {
			return s.rejectMessage(msg, err)
		}
		return pong

	default:
		return s.rejectMessage(msg, fmt.Errorf("unsupported message type %q", msg.Type))
	}
}

func (s *Server) replyState(req *protocol.Message, st protocol.StateData) *protocol.Message {
	reply, err := req.Reply(protocol.TypeState, st)
	if err != nil {
		return s.rejectMessage(req, err)
	}
	return reply
}

func (s *Server) rejectMessage(req *protocol.Message, cause error) *protocol.Message {
	s.ingest.rejected.Add(1)
	s.logger.Debug("stream message rejected", "type", req.Type, "error", cause)

	// ErrorData always marshals.
	reply, _ := req.Reply(protocol.TypeError, protocol.ErrorData{Message: cause.Error()})
	return reply
}
