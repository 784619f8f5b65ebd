// Package chat carries one-to-one messages over the shared public topic.
package chat

import (
	"context"
	"fmt"
	"strings"

	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/jrsteele09/go-social-client/realtime"
	"github.com/rs/zerolog/log"
)

// Message is the chat payload.
type Message struct {
	SenderID   string             `json:"senderId"`
	ReceiverID string             `json:"receiverId"`
	Content    string             `json:"content"`
	Timestamp  realtime.Timestamp `json:"timestamp"`
}

// Publisher is the send side of a realtime connection.
type Publisher interface {
	Publish(ctx context.Context, destination string, payload any) error
}

// Subscriber is the receive side of a realtime connection.
type Subscriber interface {
	Subscribe(topic string, handler realtime.Handler) *realtime.Subscription
}

// Send publishes msg to the chat destination. A zero timestamp is set to now.
func Send(ctx context.Context, conn Publisher, msg Message) error {
	if msg.SenderID == "" || msg.ReceiverID == "" {
		return fmt.Errorf("send: %w: sender and receiver are required", interrors.ErrInvalidRequest)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return fmt.Errorf("send: %w: empty message", interrors.ErrInvalidRequest)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = realtime.Now()
	}
	return conn.Publish(ctx, realtime.DestinationChatSend, msg)
}

// Conversation filters the shared topic down to the messages exchanged by
// Self and Partner.
type Conversation struct {
	Self    string
	Partner string

	// OnMessage receives every message of the conversation in arrival order.
	OnMessage func(Message)

	// OnActivity runs after each delivered message, typically to refresh a
	// conversation list. Its failures never affect delivery.
	OnActivity func(context.Context) error
}

// Belongs reports whether msg was exchanged between Self and Partner.
func (c *Conversation) Belongs(msg Message) bool {
	return (msg.SenderID == c.Self && msg.ReceiverID == c.Partner) ||
		(msg.SenderID == c.Partner && msg.ReceiverID == c.Self)
}

// Handle is a realtime.Handler for the public topic.
func (c *Conversation) Handle(m realtime.Message) {
	var msg Message
	if err := m.Decode(&msg); err != nil {
		log.Warn().Err(err).Msg("dropping undecodable chat message")
		return
	}
	if !c.Belongs(msg) {
		return
	}
	if c.OnMessage != nil {
		c.OnMessage(msg)
	}
	c.activity()
}

func (c *Conversation) activity() {
	if c.OnActivity == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("chat activity callback panicked")
		}
	}()
	if err := c.OnActivity(context.Background()); err != nil {
		log.Warn().Err(err).Msg("chat activity callback failed")
	}
}

// Listen subscribes the conversation to the public topic.
func Listen(conn Subscriber, c *Conversation) *realtime.Subscription {
	return conn.Subscribe(realtime.TopicPublic, c.Handle)
}
