package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newPrefsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Local preferences kept between sessions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "dark-mode [on|off]",
			Short: "Show or set the dark mode preference",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) == 1 {
					enabled, err := parseSwitch(args[0])
					if err != nil {
						return err
					}
					if err := a.Preferences.SetDarkMode(enabled); err != nil {
						return err
					}
				}
				enabled, err := a.Preferences.DarkMode()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Dark mode: %s\n", onOff(enabled))
				return nil
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Record a search query",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				history, err := a.Preferences.AddSearch(strings.Join(args, " "))
				if err != nil {
					return err
				}
				printList(cmd, history, "No searches")
				return nil
			},
		},
		newHistoryCmd(a),
		&cobra.Command{
			Use:   "story-viewed <story-id>",
			Short: "Mark a story as viewed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.Preferences.MarkStoryViewed(args[0]); err != nil {
					return err
				}
				stories, err := a.Preferences.ViewedStories()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d stories viewed\n", len(stories))
				return nil
			},
		},
	)
	return cmd
}

func newHistoryCmd(a *App) *cobra.Command {
	var clearHistory bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearHistory {
				if err := a.Preferences.ClearSearchHistory(); err != nil {
					return err
				}
			}
			history, err := a.Preferences.SearchHistory()
			if err != nil {
				return err
			}
			printList(cmd, history, "No searches")
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearHistory, "clear", false, "forget every recorded search")
	return cmd
}

func printList(cmd *cobra.Command, items []string, empty string) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, empty)
		return
	}
	for i, item := range items {
		fmt.Fprintf(out, "%2d. %s\n", i+1, item)
	}
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", v)
	}
	return enabled, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
