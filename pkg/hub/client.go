package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Connection timing for subscribers.
const (
	writeTimeout = 5 * time.Second
	idleTimeout  = 45 * time.Second
	pingInterval = 30 * time.Second

	// Subscribers only ever send pongs.
	readLimit = 4 << 10
	sendQueue = 64
)

// Client is one subscriber connection. The hub owns its send queue and
// closes it on unregister or shutdown.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient creates a client and registers it with h. Registering with a
// stopped hub yields a client whose queue is already closed.
func NewClient(h *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan Message, sendQueue),
	}
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
	return c
}

// Send queues msg for this client only, such as the current state on
// connect. It reports false when the queue is full or closed.
func (c *Client) Send(msg Message) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Run serves the connection until the peer goes away or the hub stops.
// Call it from the websocket handler; it returns once both directions
// have finished.
func (c *Client) Run() {
	written := make(chan struct{})
	go func() {
		defer close(written)
		c.write()
	}()

	c.read()
	c.leave()
	<-written
}

func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// read discards inbound frames; it exists to notice disconnects and pongs.
func (c *Client) read() {
	c.conn.SetReadLimit(readLimit)
	c.touch()
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) touch() {
	c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
}

// write is the connection's only writer.
func (c *Client) write() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.frame(websocket.CloseMessage, nil)
				return
			}
			err = c.frame(msg.frameType(), msg.Data)
		case <-ping.C:
			err = c.frame(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) frame(kind int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(kind, data)
}
