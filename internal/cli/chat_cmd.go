package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-social-client/chat"
	"github.com/jrsteele09/go-social-client/presence"
	"github.com/jrsteele09/go-social-client/realtime"
	"github.com/spf13/cobra"
)

func newChatCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send and receive direct messages",
	}
	cmd.AddCommand(newChatSendCmd(a), newChatListenCmd(a))
	return cmd
}

func newChatSendCmd(a *App) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "send --to <user-id> <message>",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			state, err := a.requireSession(ctx)
			if err != nil {
				return err
			}
			self, err := a.currentUserID(state)
			if err != nil {
				return err
			}

			conn, err := a.connect(ctx, nil, nil)
			if err != nil {
				return err
			}
			defer a.Realtime.Disconnect(conn)

			msg := chat.Message{SenderID: self, ReceiverID: to, Content: strings.Join(args, " ")}
			if err := chat.Send(ctx, conn, msg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent to %s\n", to)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "receiving user id")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newChatListenCmd(a *App) *cobra.Command {
	var with string
	cmd := &cobra.Command{
		Use:   "listen --with <user-id>",
		Short: "Print the conversation with a user as it happens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			state, err := a.requireSession(ctx)
			if err != nil {
				return err
			}
			self, err := a.currentUserID(state)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			hint := &partnerHint{}
			conv := &chat.Conversation{
				Self:    self,
				Partner: with,
				OnMessage: func(m chat.Message) {
					who := m.SenderID
					if m.SenderID == self {
						who = "me"
					}
					fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Local().Format(time.Kitchen), who, m.Content)
				},
				OnActivity: func(ctx context.Context) error {
					if line, ok := hint.next(a.Presence.QueryPresence(ctx, with)); ok {
						fmt.Fprintf(out, "  (%s is %s)\n", with, line)
					}
					return nil
				},
			}

			conn, err := a.connect(ctx, nil, nil)
			if err != nil {
				return err
			}
			defer a.Realtime.Disconnect(conn)
			chat.Listen(conn, conv)

			fmt.Fprintf(out, "Chatting with %s (%s). Press Ctrl+C to stop.\n",
				with, a.Presence.QueryPresence(ctx, with).LastSeen())
			return waitConnection(ctx, conn)
		},
	}
	cmd.Flags().StringVar(&with, "with", "", "conversation partner user id")
	_ = cmd.MarkFlagRequired("with")
	return cmd
}

// partnerHint reports an offline partner's last-seen line once per change.
type partnerHint struct {
	mu   sync.Mutex
	last presence.Record
	seen bool
}

func (h *partnerHint) next(r presence.Record) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	changed := !h.seen || !h.last.Equal(r)
	h.last, h.seen = r, true
	if !changed || r.IsOnline || r.LastSeenMinutesAgo == nil {
		return "", false
	}
	return r.LastSeen(), true
}

// waitConnection blocks until ctx ends or the connection gives up.
func waitConnection(ctx context.Context, conn *realtime.Connection) error {
	select {
	case <-ctx.Done():
		return ignoreCanceled(ctx.Err())
	case <-conn.Done():
		if ctx.Err() != nil {
			return ignoreCanceled(ctx.Err())
		}
		if err := conn.Err(); err != nil {
			return err
		}
		return fmt.Errorf("realtime connection ended: %s", conn.State().Phase)
	}
}
