// Package hub fans state updates and preview frames out to dashboard
// websocket clients.
package hub

import "github.com/gofiber/websocket/v2"

// Kind selects the websocket frame a Message is written as.
type Kind int

const (
	KindText Kind = iota
	KindBinary
)

// Message is one outbound payload.
type Message struct {
	Kind Kind
	Data []byte
}

// Text wraps an encoded JSON document.
func Text(data []byte) Message {
	return Message{Kind: KindText, Data: data}
}

// Binary wraps raw bytes such as a JPEG preview.
func Binary(data []byte) Message {
	return Message{Kind: KindBinary, Data: data}
}

func (m Message) frameType() int {
	if m.Kind == KindBinary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
