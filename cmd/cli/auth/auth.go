package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/inkdrop/inkdrop/cmd/cli/client"
	"github.com/inkdrop/inkdrop/cmd/cli/config"
	"github.com/inkdrop/inkdrop/cmd/cli/output"
	"github.com/inkdrop/inkdrop/internal/models"
	"github.com/spf13/cobra"
)

// InitAuth registers account and session commands on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		registerCmd(),
		loginCmd(),
		logoutCmd(),
		logoutAllCmd(),
		refreshCmd(),
		meCmd(),
	)
}

type authResponse struct {
	Message      string            `json:"message"`
	User         models.UserPublic `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

func api() *client.Client {
	return client.New(config.APIURL())
}

// storeSession persists the tokens from a register or login response.
func storeSession(cmd *cobra.Command, resp authResponse) error {
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return errors.New("server returned no tokens")
	}
	err := config.SaveSession(config.Session{
		Username:     resp.User.Username,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s. Logged in as %s.\n", resp.Message, resp.User.Username)
	return nil
}

// ==========================
// REGISTER
// ==========================
func registerCmd() *cobra.Command {
	var email, username, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp authResponse
			payload := map[string]string{"email": email, "username": username, "password": password}
			if err := api().Do(cmd.Context(), http.MethodPost, "/api/auth/register", "", payload, &resp); err != nil {
				return fmt.Errorf("failed to register: %w", err)
			}
			return storeSession(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "", "username (3-50 letters, digits, - or _)")
	cmd.Flags().StringVar(&password, "password", "", "password (at least 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// ==========================
// LOGIN
// ==========================
func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the InkDrop API",
		Long:  "Authenticate with the InkDrop API and store the token pair for subsequent CLI commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp authResponse
			payload := map[string]string{"email": email, "password": password}
			if err := api().Do(cmd.Context(), http.MethodPost, "/api/auth/login", "", payload, &resp); err != nil {
				return fmt.Errorf("failed to login: %w", err)
			}
			return storeSession(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// ==========================
// LOGOUT
// ==========================
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke this session's refresh token and forget it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := config.LoadSession()
			if errors.Is(err, config.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "No user logged in.")
				return nil
			}
			if err != nil {
				return err
			}

			payload := map[string]string{"refreshToken": sess.RefreshToken}
			if err := api().Do(cmd.Context(), http.MethodPost, "/api/auth/logout", "", payload, nil); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server logout failed: %v\n", err)
			}
			if err := config.ClearSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully.")
			return nil
		},
	}
}

func logoutAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout-all",
		Short: "Revoke every refresh token of the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Revoked int64 `json:"revoked"`
			}
			if err := api().DoAuthed(cmd.Context(), http.MethodPost, "/api/auth/logout-all", nil, &resp); err != nil {
				return err
			}
			if err := config.ClearSession(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked %d session(s).\n", resp.Revoked)
			return nil
		},
	}
}

// ==========================
// REFRESH
// ==========================
func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Obtain a new access token using the stored refresh token",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := config.LoadSession()
			if err != nil {
				return err
			}
			access, err := api().Refresh(cmd.Context(), sess.RefreshToken)
			if err != nil {
				return fmt.Errorf("failed to refresh: %w", err)
			}
			sess.AccessToken = access
			if err := config.SaveSession(sess); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Access token refreshed.")
			return nil
		},
	}
}

// ==========================
// ME
// ==========================
func meCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				User models.UserPublic `json:"user"`
			}
			if err := api().DoAuthed(cmd.Context(), http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), resp.User)
			}
			output.User(cmd.OutOrStdout(), resp.User)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	cmd.AddCommand(updateMeCmd())

	return cmd
}

func updateMeCmd() *cobra.Command {
	var bio, avatarURL string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update bio and avatar URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{}
			if cmd.Flags().Changed("bio") {
				payload["bio"] = bio
			}
			if cmd.Flags().Changed("avatar-url") {
				payload["avatarUrl"] = avatarURL
			}
			if len(payload) == 0 {
				return errors.New("nothing to update: pass --bio and/or --avatar-url")
			}

			var resp struct {
				Message string            `json:"message"`
				User    models.UserPublic `json:"user"`
			}
			if err := api().DoAuthed(cmd.Context(), http.MethodPut, "/api/auth/me", payload, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			output.User(cmd.OutOrStdout(), resp.User)
			return nil
		},
	}
	cmd.Flags().StringVar(&bio, "bio", "", "profile bio")
	cmd.Flags().StringVar(&avatarURL, "avatar-url", "", "avatar image URL")

	return cmd
}
