package realtime

import (
	"encoding/json"
	"fmt"
)

// FrameType tags every frame on the socket.
type FrameType string

const (
	FrameSubscribe   FrameType = "subscribe"
	FrameUnsubscribe FrameType = "unsubscribe"
	FrameSend        FrameType = "send"
	FrameMessage     FrameType = "message"
	FrameError       FrameType = "error"
)

// Well-known destinations.
const (
	TopicPublic         = "/topic/public"
	DestinationChatSend = "/app/chat.send"
)

// NotificationsTopic is the per-user notification topic.
func NotificationsTopic(userID string) string {
	return "/topic/notifications/" + userID
}

// Frame is the JSON envelope exchanged over the socket. For subscribe and
// unsubscribe frames ID is the subscription id; for send frames it is a
// message id the server may echo in an error frame.
type Frame struct {
	Type        FrameType       `json:"type"`
	ID          string          `json:"id,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// Message is a frame delivered to a subscription handler.
type Message struct {
	Topic string
	Body  json.RawMessage
}

// Decode unmarshals the message body into v.
func (m Message) Decode(v any) error {
	if len(m.Body) == 0 {
		return fmt.Errorf("decode %s: empty body", m.Topic)
	}
	if err := json.Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Topic, err)
	}
	return nil
}

// Handler receives messages for a subscription. Handlers run on the
// connection's reader goroutine, one at a time, in arrival order.
type Handler func(Message)
