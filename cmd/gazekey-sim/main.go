// gazekey-sim - terminal gaze simulator
// Streams synthetic landmark frames to a running gazekey server and renders
// the keyboard state it answers with.
//
// Keys: ← → look left/right, ↓ look center, space/enter blink,
// r reset cursor, t toggle tracking, c clear text, q/esc quit.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gazekey/internal/httpc"
	"github.com/teslashibe/go-gazekey/pkg/decoder"
	"github.com/teslashibe/go-gazekey/pkg/eyestate"
	"github.com/teslashibe/go-gazekey/pkg/protocol"
	"github.com/teslashibe/go-gazekey/pkg/termview"
)

// blinkFrames is how many closed-eye frames one keypress sends.
const blinkFrames = 3

type sim struct {
	base   *url.URL
	ws     *websocket.Conn
	screen tcell.Screen
	view   *termview.View

	gaze  eyestate.Direction
	state protocol.StateData
}

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "gazekey server address")
	fps := flag.Int("fps", 10, "Frames per second while gazing")
	flag.Parse()

	if err := run(*addr, *fps); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(addr string, fps int) error {
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", fps)
	}
	base := &url.URL{Scheme: "http", Host: addr}
	wsURL := url.URL{Scheme: "ws", Host: addr, Path: "/ws/frames"}

	ws, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", wsURL.String(), err)
	}
	defer ws.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	s := &sim{
		base:   base,
		ws:     ws,
		screen: screen,
		view:   termview.New(screen),
		gaze:   eyestate.Center,
		state:  protocol.StateData{Status: "connecting"},
	}
	return s.loop(time.Second / time.Duration(fps))
}

func (s *sim) loop(interval time.Duration) error {
	replies := make(chan *protocol.Message, 16)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := s.ws.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if msg, err := protocol.ParseMessage(data); err == nil {
				replies <- msg
			}
		}
	}()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.view.Draw(s.state)
	for {
		select {
		case ev := <-events:
			quit, err := s.handleEvent(ev)
			if err != nil || quit {
				return err
			}

		case <-ticker.C:
			if err := s.sendFrame(eyestate.LookFrame(s.gaze)); err != nil {
				return err
			}

		case msg := <-replies:
			switch msg.Type {
			case protocol.TypeState:
				if st, err := msg.GetStateData(); err == nil {
					s.state = *st
				}
			case protocol.TypeError:
				var e protocol.ErrorData
				if msg.ParseData(&e) == nil {
					s.state.Status = "error: " + e.Message
				}
			}
			s.view.Draw(s.state)

		case err := <-readErr:
			return fmt.Errorf("server closed the stream: %w", err)
		}
	}
}

func (s *sim) handleEvent(ev tcell.Event) (bool, error) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		s.screen.Sync()
		s.view.Draw(s.state)

	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true, nil
		case tcell.KeyLeft:
			s.gaze = eyestate.Left
		case tcell.KeyRight:
			s.gaze = eyestate.Right
		case tcell.KeyDown:
			s.gaze = eyestate.Center
		case tcell.KeyEnter:
			return false, s.blink()
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return true, nil
			case ' ':
				return false, s.blink()
			case 'r':
				return false, s.sendAction(decoder.ActionResetCursor)
			case 't':
				return false, s.post("/api/toggle-tracking")
			case 'c':
				return false, s.post("/api/clear-text")
			}
		}
	}
	return false, nil
}

// blink sends a short run of closed-eye frames, like a real blink spanning
// several camera frames. The select cooldown collapses it to one command.
func (s *sim) blink() error {
	s.gaze = eyestate.Center
	for range blinkFrames {
		if err := s.sendFrame(eyestate.BlinkFrame()); err != nil {
			return err
		}
	}
	return nil
}

func (s *sim) sendFrame(frame eyestate.Frame) error {
	msg, err := protocol.NewLandmarkMessage(frame)
	if err != nil {
		return err
	}
	return s.send(msg)
}

func (s *sim) sendAction(a decoder.Action) error {
	msg, err := protocol.NewActionMessage(string(a))
	if err != nil {
		return err
	}
	return s.send(msg)
}

func (s *sim) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return s.ws.WriteMessage(websocket.TextMessage, data)
}

// post calls a state-changing REST route. The next streamed frame picks up
// the new state.
func (s *sim) post(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := httpc.PostJSON(ctx, httpc.Client, s.base.JoinPath(path).String(), []byte("{}"), nil)
	if err != nil {
		s.state.Status = "error: " + err.Error()
		s.view.Draw(s.state)
		return nil
	}
	resp.Body.Close()
	return nil
}
