package cli

import (
	"fmt"

	"github.com/jrsteele09/go-social-client/friendship"
	"github.com/jrsteele09/go-social-client/notifications"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newNotificationsCmd(a *App) *cobra.Command {
	var autoAccept bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Print notifications as they arrive",
		Long: `Subscribes to the signed-in user's notification stream. With --auto-accept
incoming friend requests are accepted as they arrive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			state, err := a.requireSession(ctx)
			if err != nil {
				return err
			}
			userID, err := a.currentUserID(state)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			conn, err := a.connect(ctx, nil, nil)
			if err != nil {
				return err
			}
			defer a.Realtime.Disconnect(conn)

			notifications.Listen(conn, userID, func(ev notifications.Event) {
				fmt.Fprintf(out, "%s\t%s\t%s\n", ev.Type, ev.SenderID, ev.Message)
				if !autoAccept || !ev.IsFriendRequest() || ev.SenderID == "" {
					return
				}
				go func() {
					if _, err := a.Friends.Apply(ctx, ev.SenderID, friendship.ActionAccept); err != nil {
						log.Warn().Err(err).Str("user", ev.SenderID).Msg("auto-accept failed")
						return
					}
					fmt.Fprintf(out, "Accepted friend request from %s\n", ev.SenderID)
				}()
			})

			fmt.Fprintln(out, "Listening for notifications. Press Ctrl+C to stop.")
			return waitConnection(ctx, conn)
		},
	}
	cmd.Flags().BoolVar(&autoAccept, "auto-accept", false, "accept incoming friend requests")
	return cmd
}
