package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/go-social-client/presence"
	"github.com/spf13/cobra"
)

func newPresenceCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Announce or query online status",
	}
	cmd.AddCommand(newPresencePingCmd(a), newPresenceQueryCmd(a))
	return cmd
}

func newPresencePingCmd(a *App) *cobra.Command {
	var keepAlive bool
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Mark the signed-in user as online",
		Long: `Mark the signed-in user as online. With --keep-alive the announcement
repeats on the configured interval until interrupted.`,
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
			if !keepAlive {
				if err := a.Presence.Ping(ctx, userID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Online")
				return nil
			}

			stop := a.Presence.StartPing(ctx, userID)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Announcing %s every %s. Press Ctrl+C to stop.\n", userID, a.Config.GetPingInterval())
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepAlive, "keep-alive", false, "keep announcing until interrupted")
	return cmd
}

func newPresenceQueryCmd(a *App) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "query <user-id>...",
		Short: "Show the online status of users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			watcher := presence.NewWatcher(a.Presence, presence.WithInterval(a.Config.GetPresencePollInterval()))
			watcher.Watch(args...)
			if !watch {
				for _, id := range args {
					printPresence(out, id, watcher.Refresh(ctx, id))
				}
				return nil
			}

			watcher.OnChange(func(userID string, r presence.Record) {
				printPresence(out, userID, r)
			})
			watcher.Run(ctx)
			return ignoreCanceled(ctx.Err())
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep polling and print changes")
	return cmd
}

func printPresence(w io.Writer, userID string, r presence.Record) {
	fmt.Fprintf(w, "%s\t%s\n", userID, r.LastSeen())
}

// ignoreCanceled treats an interrupted long-running command as a clean exit.
func ignoreCanceled(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}
