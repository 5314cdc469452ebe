package cli

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"photomaker/internal/devserver"

	"github.com/spf13/cobra"
)

func newDevserverCmd(app *App) *cobra.Command {
	var addr string
	var username string
	var password string
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local stand-in backend (login, upload, catalogs)",
		Long: strings.TrimSpace(`
Run a local backend that speaks the same login, logout and upload contract as the
real one. Uploaded images are validated and echoed back under their output names
("{catalog} - {design}.jpg") without any image processing. Prometheus metrics are
served on /metrics.
`),
		Example: strings.TrimSpace(`
photomaker devserver --addr 127.0.0.1:8000
PHOTOMAKER_SERVER=http://127.0.0.1:8000 photomaker
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("devserver: missing --addr"))
			}
			srv := devserver.New(devserver.Config{
				Username:      username,
				Password:      password,
				Catalogs:      app.config.CatalogList(),
				SessionMaxAge: maxAge,
				Metrics:       app.metrics,
			})

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			url := "http://" + ln.Addr().String()
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      ln.Addr().String(),
					"url":       url,
					"username":  username,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "Photo maker dev server running at %s\n", url)

			return srv.Serve(cmd.Context(), ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Bind address (host:port or :port)")
	cmd.Flags().StringVar(&username, "username", envOr("PHOTOMAKER_DEV_USERNAME", "admin"), "Accepted username")
	cmd.Flags().StringVar(&password, "password", envOr("PHOTOMAKER_DEV_PASSWORD", "change-this"), "Accepted password")
	cmd.Flags().DurationVar(&maxAge, "session-max-age", time.Hour, "Expire idle sessions after this long")
	return cmd
}
