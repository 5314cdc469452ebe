package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var username string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the backend and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PHOTOMAKER_PASSWORD")
			}
			if strings.TrimSpace(username) == "" || password == "" {
				return writeErr(cmd, errors.New("missing --username or --password (or PHOTOMAKER_PASSWORD)"))
			}
			ctx, cancel := withTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			sess, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := sess.Login(ctx, username, password); err != nil {
				return writeErr(cmd, fmt.Errorf("login: %w", err))
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"server":   sess.BaseURL,
					"username": username,
					"auth":     string(sess.Mode),
					"loggedIn": sess.LoggedIn(),
				},
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", envOr("PHOTOMAKER_USERNAME", ""), "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (default $PHOTOMAKER_PASSWORD)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the backend session and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			sess, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := sess.Logout(ctx); err != nil {
				return writeErr(cmd, fmt.Errorf("logout: %w", err))
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"server":   sess.BaseURL,
					"loggedIn": false,
				},
			})
		},
	}
}
