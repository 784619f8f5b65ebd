package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-social-client/realtime"
	"github.com/stretchr/testify/require"
)

// echoServer relays every send frame to /topic/public subscribers of the same
// socket, the way the chat broker fans messages out.
type echoServer struct {
	mu        sync.Mutex
	auth      []string
	subscribe []realtime.Frame
}

func (s *echoServer) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var f realtime.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			switch f.Type {
			case realtime.FrameSubscribe:
				s.mu.Lock()
				s.subscribe = append(s.subscribe, f)
				s.mu.Unlock()
			case realtime.FrameSend:
				out := realtime.Frame{Type: realtime.FrameMessage, Destination: realtime.TopicPublic, Body: f.Body}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			}
		}
	}
}

func (s *echoServer) Subscribed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribe)
}

func TestWebsocketRoundTrip(t *testing.T) {
	srv := &echoServer{}
	server := httptest.NewServer(srv.handler(t))
	t.Cleanup(server.Close)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	rec := &recorder{}
	m := realtime.NewManager(wsURL, realtime.WebsocketDialer{}, realtime.WithRetry(3, 10*time.Millisecond))
	conn, err := m.Connect(context.Background(), "token-1", []string{realtime.TopicPublic}, rec.handle)
	require.NoError(t, err)
	t.Cleanup(func() { m.Disconnect(conn) })

	require.Eventually(t, func() bool { return srv.Subscribed() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Publish(context.Background(), realtime.DestinationChatSend, map[string]string{"content": "hi"}))
	require.Eventually(t, func() bool { return len(rec.Messages()) == 1 }, 2*time.Second, 5*time.Millisecond)

	var got map[string]string
	require.NoError(t, rec.Messages()[0].Decode(&got))
	require.Equal(t, "hi", got["content"])

	srv.mu.Lock()
	require.Equal(t, []string{"Bearer token-1"}, srv.auth)
	srv.mu.Unlock()
}

func TestWebsocketDialerReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	server.Close()

	_, err := realtime.WebsocketDialer{}.Dial(context.Background(), wsURL, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), wsURL)
}
