// Package cli is the command line surface of the social client.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree over a.
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "socialcli",
		Short: "Command line client for the social network",
		Long: `socialcli signs in to the social network backend, keeps the session fresh,
and exposes friendships, presence, chat and notifications from the terminal.

Session tokens and preferences persist in the data folder between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newVerifyOTPCmd(a),
		newOAuthLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newFriendsCmd(a),
		newPresenceCmd(a),
		newChatCmd(a),
		newNotificationsCmd(a),
		newPrefsCmd(a),
	)
	return root
}
