package cli

import (
	"fmt"

	"github.com/jrsteele09/go-social-client/api"
	"github.com/jrsteele09/go-social-client/auth"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with email and password",
		Example: `  socialcli login --email user@example.com --password 'Secret123'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.Auth.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", displayName(state, email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd(a *App) *cobra.Command {
	var req api.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account. The backend emails a one-time code; finish with
verify-otp to sign in.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Auth.Register(cmd.Context(), req); err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registration started. Check %s for a code and run verify-otp.\n", req.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	cmd.Flags().StringVar(&req.Username, "username", "", "public username")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newVerifyOTPCmd(a *App) *cobra.Command {
	var email, otp string
	cmd := &cobra.Command{
		Use:   "verify-otp",
		Short: "Complete registration with the emailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.Auth.VerifyOTP(cmd.Context(), email, otp)
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Verified. Logged in as %s\n", displayName(state, email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&otp, "otp", "", "one-time code")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("otp")
	return cmd
}

func newOAuthLoginCmd(a *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "oauth-login",
		Short: "Login through the identity provider in a browser",
		Long: `Starts a loopback listener, prints the provider login URL and waits for
the redirect carrying the session tokens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			manager, err := a.oauthManager(ctx)
			if err != nil {
				return err
			}

			cs, err := startCallbackServer(addr)
			if err != nil {
				return err
			}
			defer cs.Close()

			loginURL, err := manager.OAuthLoginURL(ctx, cs.RedirectURI())
			if err != nil {
				return fmt.Errorf("oauth login: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser to continue:\n\n  %s\n\n", loginURL)

			result, err := cs.Wait(ctx, a.Config.GetCallbackTimeout())
			if err != nil {
				return err
			}
			state, err := manager.CompleteOAuthLogin(ctx, result)
			if err != nil {
				return fmt.Errorf("oauth login: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", displayName(state, ""))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", a.Config.GetCallbackAddr(), "loopback address for the redirect")
	return cmd
}

func newLogoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the stored session is still valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.Auth.CheckSession(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s\n", state.Status)
			if state.IsAuthenticated {
				fmt.Fprintf(out, "User:   %s\n", displayName(state, ""))
			}
			return nil
		},
	}
}

func displayName(state auth.State, fallback string) string {
	if name := state.User.DisplayName(); name != "" {
		return name
	}
	if fallback != "" {
		return fallback
	}
	return "unknown user"
}
