package friendship

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/jrsteele09/go-social-client/kvstore"
	"github.com/jrsteele09/go-social-client/kvstore/memstore"
	"github.com/jrsteele09/go-social-client/users"
	"github.com/rs/zerolog/log"
)

const (
	RouteAll      = "/friendship/all"
	RouteRequests = "/friendship/requests"
	RouteAdd      = "/friendship/add"
	RouteAccept   = "/friendship/accept"
	RouteCancel   = "/friendship/cancel"
)

// Status is the relationship between the signed-in user and another user.
type Status string

const (
	StatusNone     Status = "NONE"
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
)

// Action moves a relationship between statuses.
type Action string

const (
	ActionAdd    Action = "add"
	ActionAccept Action = "accept"
	// ActionCancel covers rejecting a request, withdrawing one and unfriending.
	ActionCancel Action = "cancel"
)

// Friend is an accepted friendship.
type Friend struct {
	users.Profile
	Since time.Time `json:"since"`
}

// Request is a pending friendship addressed to the signed-in user.
type Request struct {
	ID         string         `json:"id,omitempty"`
	SenderID   string         `json:"senderId"`
	ReceiverID string         `json:"receiverId"`
	Status     Status         `json:"status,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	Sender     *users.Profile `json:"sender,omitempty"`
}

// Transition returns the status reached by applying action to current.
func Transition(current Status, action Action) (Status, error) {
	switch {
	case current == StatusNone && action == ActionAdd:
		return StatusPending, nil
	case current == StatusPending && action == ActionAccept:
		return StatusAccepted, nil
	case (current == StatusPending || current == StatusAccepted) && action == ActionCancel:
		return StatusNone, nil
	}
	return current, fmt.Errorf("%w: %s from %s", interrors.ErrInvalidTransition, action, current)
}

// Requester performs authenticated REST calls. *api.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

type userRequest struct {
	UserID string `json:"userId"`
}

// KeySentRequests holds the ids of users this client has sent a pending
// request to. The backend only lists requests addressed to the signed-in user.
const KeySentRequests = "sentFriendRequests"

// Service wraps the friendship endpoints.
type Service struct {
	client Requester
	kv     kvstore.Store
	lock   sync.Mutex
}

// ServiceOption defines a function type to modify the Service.
type ServiceOption func(*Service)

// WithStore keeps the sent-request list in kv so it survives restarts.
func WithStore(kv kvstore.Store) ServiceOption {
	return func(s *Service) {
		s.kv = kv
	}
}

func NewService(client Requester, options ...ServiceOption) *Service {
	s := &Service{client: client, kv: memstore.New()}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// All returns the signed-in user's friends.
func (s *Service) All(ctx context.Context) ([]Friend, error) {
	var friends []Friend
	if err := s.client.Do(ctx, http.MethodGet, RouteAll, nil, &friends); err != nil {
		return nil, interrors.Wrapf(err, "list friends")
	}
	return friends, nil
}

// Requests returns the pending requests addressed to the signed-in user.
func (s *Service) Requests(ctx context.Context) ([]Request, error) {
	var requests []Request
	if err := s.client.Do(ctx, http.MethodGet, RouteRequests, nil, &requests); err != nil {
		return nil, interrors.Wrapf(err, "list friend requests")
	}
	return requests, nil
}

func (s *Service) Add(ctx context.Context, userID string) error {
	if err := s.post(ctx, RouteAdd, userID); err != nil {
		return err
	}
	return s.markSent(userID, true)
}

func (s *Service) Accept(ctx context.Context, userID string) error {
	if err := s.post(ctx, RouteAccept, userID); err != nil {
		return err
	}
	return s.markSent(userID, false)
}

// Cancel rejects or withdraws a pending request, or ends a friendship.
func (s *Service) Cancel(ctx context.Context, userID string) error {
	if err := s.post(ctx, RouteCancel, userID); err != nil {
		return err
	}
	return s.markSent(userID, false)
}

// Sent returns the users with a pending request from this client.
func (s *Service) Sent() ([]string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.readSent()
}

// StatusOf derives the relationship with userID from the friend and request
// lists.
func (s *Service) StatusOf(ctx context.Context, userID string) (Status, error) {
	friends, err := s.All(ctx)
	if err != nil {
		return StatusNone, err
	}
	for _, f := range friends {
		if f.ID == userID {
			return StatusAccepted, nil
		}
	}
	requests, err := s.Requests(ctx)
	if err != nil {
		return StatusNone, err
	}
	for _, r := range requests {
		if r.SenderID == userID || r.ReceiverID == userID {
			return StatusPending, nil
		}
	}
	sent, err := s.Sent()
	if err != nil {
		return StatusNone, err
	}
	if slices.Contains(sent, userID) {
		return StatusPending, nil
	}
	return StatusNone, nil
}

// Apply checks action against the current relationship with userID and
// performs it. The returned status is the one the backend now holds.
func (s *Service) Apply(ctx context.Context, userID string, action Action) (Status, error) {
	current, err := s.StatusOf(ctx, userID)
	if err != nil {
		return StatusNone, err
	}
	next, err := Transition(current, action)
	// A request sent from another device is invisible here; the backend
	// decides whether there is anything to withdraw.
	if err != nil && !(current == StatusNone && action == ActionCancel) {
		return current, err
	}

	switch action {
	case ActionAdd:
		err = s.Add(ctx, userID)
	case ActionAccept:
		err = s.Accept(ctx, userID)
	case ActionCancel:
		err = s.Cancel(ctx, userID)
	}
	if err != nil {
		return current, err
	}
	log.Info().Str("user", userID).Str("action", string(action)).Str("status", string(next)).Msg("friendship updated")
	return next, nil
}

func (s *Service) post(ctx context.Context, route, userID string) error {
	if userID == "" {
		return fmt.Errorf("%s: %w: user id is required", route, interrors.ErrInvalidRequest)
	}
	if err := s.client.Do(ctx, http.MethodPost, route, userRequest{UserID: userID}, nil); err != nil {
		return interrors.Wrapf(err, "%s", route)
	}
	return nil
}

func (s *Service) markSent(userID string, pending bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	sent, err := s.readSent()
	if err != nil {
		return err
	}
	sent = slices.DeleteFunc(sent, func(id string) bool { return id == userID })
	if pending {
		sent = append(sent, userID)
	}
	if len(sent) == 0 {
		return s.kv.Delete(KeySentRequests)
	}
	data, err := json.Marshal(sent)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeySentRequests, err)
	}
	return s.kv.Set(KeySentRequests, string(data))
}

func (s *Service) readSent() ([]string, error) {
	raw, ok, err := s.kv.Get(KeySentRequests)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeySentRequests, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var sent []string
	if err := json.Unmarshal([]byte(raw), &sent); err != nil {
		return nil, nil
	}
	return sent, nil
}
