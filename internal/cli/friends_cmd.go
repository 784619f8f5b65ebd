package cli

import (
	"fmt"

	"github.com/jrsteele09/go-social-client/friendship"
	"github.com/spf13/cobra"
)

func newFriendsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "Manage friendships",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List accepted friends",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := a.requireSession(cmd.Context()); err != nil {
					return err
				}
				friends, err := a.Friends.All(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(friends) == 0 {
					fmt.Fprintln(out, "No friends yet")
					return nil
				}
				for _, f := range friends {
					fmt.Fprintf(out, "%s\t%s\n", f.ID, f.DisplayName())
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "requests",
			Short: "List pending friend requests",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := a.requireSession(cmd.Context()); err != nil {
					return err
				}
				requests, err := a.Friends.Requests(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(requests) == 0 {
					fmt.Fprintln(out, "No pending requests")
					return nil
				}
				for _, r := range requests {
					name := r.SenderID
					if n := r.Sender.DisplayName(); n != "" {
						name = n
					}
					fmt.Fprintf(out, "%s\tfrom %s\n", r.SenderID, name)
				}
				return nil
			},
		},
		newFriendActionCmd(a, friendship.ActionAdd, "Send a friend request"),
		newFriendActionCmd(a, friendship.ActionAccept, "Accept a friend request"),
		newFriendActionCmd(a, friendship.ActionCancel, "Reject, withdraw or end a friendship"),
	)
	return cmd
}

func newFriendActionCmd(a *App, action friendship.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			status, err := a.Friends.Apply(cmd.Context(), args[0], action)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Friendship with %s is now %s\n", args[0], status)
			return nil
		},
	}
}
