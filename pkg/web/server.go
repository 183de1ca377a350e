// Package web serves the gaze keyboard over HTTP and WebSocket.
//
// The REST routes mirror the browser client's API: frames and manual
// actions go in, controller state comes out. Dashboards subscribe to
// /ws/status for every state change; camera clients can stream frames over
// /ws/frames instead of posting them one request at a time.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gazekey/internal/log"
	"github.com/teslashibe/go-gazekey/pkg/eyestate"
	"github.com/teslashibe/go-gazekey/pkg/hub"
	"github.com/teslashibe/go-gazekey/pkg/landmarks"
	"github.com/teslashibe/go-gazekey/pkg/protocol"
	"github.com/teslashibe/go-gazekey/pkg/session"
)

// ErrNoExtractor is returned for image frames when no landmark extractor is
// configured.
var ErrNoExtractor = errors.New("web: image frames need a landmark extractor")

// ImageFilter transforms a posted image before landmark extraction.
type ImageFilter func(jpeg []byte) ([]byte, error)

// Option configures a Server.
type Option func(*Server)

// WithExtractor enables image frames.
func WithExtractor(e landmarks.Extractor) Option {
	return func(s *Server) {
		s.extractor = e
	}
}

// WithImageFilter sets a filter applied to posted images, such as mirroring.
func WithImageFilter(f ImageFilter) Option {
	return func(s *Server) {
		s.imageFilter = f
	}
}

// WithStaticDir serves a browser client from dir.
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.staticDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// Server is the gaze keyboard API server.
type Server struct {
	app     *fiber.App
	port    string
	session *session.Session

	extractor   landmarks.Extractor
	imageFilter ImageFilter
	staticDir   string
	logger      *slog.Logger

	// ctx bounds extraction for websocket frames; set by Start.
	ctx context.Context

	statusHub *hub.Hub
	cameraHub *hub.Hub
	stopHubs  context.CancelFunc
	ingest    ingestStats
}

// NewServer creates a server for sess listening on port.
func NewServer(port string, sess *session.Session, opts ...Option) *Server {
	s := &Server{
		port:      port,
		session:   sess,
		ctx:       context.Background(),
		statusHub: hub.New("status"),
		cameraHub: hub.New("camera"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("web")
	}

	// Hubs live as long as the server so upgrades served through App()
	// alone still register.
	hubCtx, stop := context.WithCancel(context.Background())
	s.stopHubs = stop
	go s.statusHub.Run(hubCtx)
	go s.cameraHub.Run(hubCtx)

	app := fiber.New(fiber.Config{
		AppName:               "gazekey",
		DisableStartupMessage: true,
		BodyLimit:             8 * 1024 * 1024, // posted camera frames
	})

	app.Use(recover.New())
	app.Use(cors.New())

	if s.staticDir != "" {
		app.Static("/", s.staticDir)
	}

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/keyboard-layout", s.handleKeyboardLayout)
	api.Get("/state", s.handleState)
	api.Post("/toggle-tracking", s.handleToggleTracking)
	api.Post("/clear-text", s.handleClearText)
	api.Post("/update-sensitivity", s.handleUpdateSensitivity)
	api.Post("/type", s.handleType)
	api.Post("/process-frame", s.handleProcessFrame)
	api.Post("/learn-word", s.handleLearnWord)
	api.Post("/reset-cursor", s.handleResetCursor)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/frames", s.framesHandler())

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener. The server is closed when Serve
// returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ctx = ctx
	defer s.Close()

	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}()

	s.logger.Info("web server listening", "addr", ln.Addr().String(), "session", s.session.ID())
	return s.app.Listener(ln)
}

// Close stops the broadcast hubs, disconnecting every subscriber. It is
// safe to call more than once.
func (s *Server) Close() {
	s.stopHubs()
}

// Publish broadcasts a result to status subscribers.
func (s *Server) Publish(res session.Result) {
	msg, err := protocol.NewStateMessage(res)
	if err != nil {
		s.logger.Warn("encode state failed", "error", err)
		return
	}
	if err := s.statusHub.BroadcastJSON(msg); err != nil {
		s.logger.Warn("broadcast state failed", "error", err)
	}
}

// SendCameraFrame forwards a preview JPEG to camera subscribers.
func (s *Server) SendCameraFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// StatusHub returns the state broadcast hub.
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// ProcessFrame runs one frame through the session and publishes the result.
// Image frames pass through the image filter and the extractor first; an
// image with no face counts as a frame without signal.
func (s *Server) ProcessFrame(ctx context.Context, fd *protocol.FrameData) (session.Result, error) {
	if !s.session.Tracking() {
		return s.session.ProcessFrame(nil), nil
	}

	switch {
	case fd.HasLandmarks():
		points, err := fd.Frame()
		if err != nil {
			return session.Result{}, err
		}
		return s.process(points), nil
	case fd.Image != "":
		jpeg, err := fd.DecodeImage()
		if err != nil {
			return session.Result{}, fmt.Errorf("decode image: %w", err)
		}
		if s.imageFilter != nil {
			if jpeg, err = s.imageFilter(jpeg); err != nil {
				return session.Result{}, err
			}
		}
		return s.ProcessImage(ctx, jpeg)
	default:
		return session.Result{}, protocol.ErrEmptyFrame
	}
}

// ProcessImage extracts landmarks from an already oriented JPEG, as the
// local camera produces, and processes them.
func (s *Server) ProcessImage(ctx context.Context, jpeg []byte) (session.Result, error) {
	if s.extractor == nil {
		return session.Result{}, ErrNoExtractor
	}
	if !s.session.Tracking() {
		return s.session.ProcessFrame(nil), nil
	}

	points, err := s.extractor.Extract(ctx, jpeg)
	if err != nil && !errors.Is(err, landmarks.ErrNoFace) {
		return session.Result{}, err
	}
	return s.process(points), nil
}

func (s *Server) process(points eyestate.Frame) session.Result {
	res := s.session.ProcessFrame(points)
	s.Publish(res)
	return res
}
