// Package notifications decodes the per-user notification stream.
package notifications

import (
	"github.com/jrsteele09/go-social-client/realtime"
	"github.com/rs/zerolog/log"
)

// Type tags what a notification is about.
type Type string

const (
	TypeFriendRequest  Type = "FRIEND_REQUEST"
	TypeFriendAccepted Type = "FRIEND_ACCEPTED"
	TypeMessage        Type = "MESSAGE"
	TypeLike           Type = "LIKE"
	TypeComment        Type = "COMMENT"
)

// Event is one notification pushed to a user.
type Event struct {
	ID         string             `json:"id,omitempty"`
	Type       Type               `json:"type"`
	SenderID   string             `json:"senderId,omitempty"`
	ReceiverID string             `json:"receiverId,omitempty"`
	Message    string             `json:"message,omitempty"`
	CreatedAt  realtime.Timestamp `json:"createdAt"`
}

// IsFriendRequest reports whether the event asks the receiver to accept a
// friendship.
func (e Event) IsFriendRequest() bool {
	return e.Type == TypeFriendRequest
}

// Subscriber is the receive side of a realtime connection.
type Subscriber interface {
	Subscribe(topic string, handler realtime.Handler) *realtime.Subscription
}

// Handler converts realtime messages into events for fn.
func Handler(fn func(Event)) realtime.Handler {
	return func(m realtime.Message) {
		var ev Event
		if err := m.Decode(&ev); err != nil {
			log.Warn().Err(err).Msg("dropping undecodable notification")
			return
		}
		fn(ev)
	}
}

// Listen subscribes fn to userID's notification topic.
func Listen(conn Subscriber, userID string, fn func(Event)) *realtime.Subscription {
	return conn.Subscribe(realtime.NotificationsTopic(userID), Handler(fn))
}
