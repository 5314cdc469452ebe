package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"photomaker/internal/auth"
	"photomaker/internal/format"
	"photomaker/internal/logging"
	"photomaker/internal/metrics"
	"photomaker/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultServer = "http://localhost:8000"

type App struct {
	Dir         string
	Server      string
	Auth        string
	Token       string
	PrettyJSON  bool
	Format      string
	LogFile     string
	MetricsFile string

	store     store.Store
	config    *store.Config
	metrics   *metrics.Metrics
	logCloser io.Closer
}

// flagEnv maps persistent flags to the environment variables that default them.
var flagEnv = map[string]string{
	"dir":          "PHOTOMAKER_DIR",
	"server":       "PHOTOMAKER_SERVER",
	"auth":         "PHOTOMAKER_AUTH",
	"token":        "PHOTOMAKER_TOKEN",
	"format":       "PHOTOMAKER_FORMAT",
	"log-file":     "PHOTOMAKER_LOG_FILE",
	"metrics-file": "PHOTOMAKER_METRICS_FILE",
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "photomaker",
		Short:        "Shobha Sarees Photo Maker: prepare and upload catalog photos",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  photomaker

  # Upload without the TUI (shortcut for: photomaker upload a.jpg b.jpg ...)
  photomaker a.jpg b.jpg --catalog Heritage --design 101 --design 102

  # Run a local backend for development
  photomaker devserver
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd.Context(), app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		applyEnv(cmd.Flags())
		return app.open()
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close()
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("PHOTOMAKER_DIR", ""), "State directory (default ~/.photomaker)")
	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("PHOTOMAKER_SERVER", ""), "Backend base URL (default from config.yaml, then "+defaultServer+")")
	cmd.PersistentFlags().StringVar(&app.Auth, "auth", envOr("PHOTOMAKER_AUTH", ""), "Auth transport (cookie|bearer)")
	cmd.PersistentFlags().StringVar(&app.Token, "token", envOr("PHOTOMAKER_TOKEN", ""), "Bearer token (with --auth bearer)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("PHOTOMAKER_FORMAT", "json"), "Output format (json|yaml)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", envOr("PHOTOMAKER_LOG_FILE", ""), "Log file (default <dir>/photomaker.log)")
	cmd.PersistentFlags().StringVar(&app.MetricsFile, "metrics-file", envOr("PHOTOMAKER_METRICS_FILE", ""), "Write Prometheus textfile metrics here on exit")

	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newCatalogsCmd(app))
	cmd.AddCommand(newUploadCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newThemeCmd(app))
	cmd.AddCommand(newDevserverCmd(app))

	return cmd
}

// applyEnv re-reads defaults for flags the user did not set, so values from .env count.
func applyEnv(fs *pflag.FlagSet) {
	for name, key := range flagEnv {
		f := fs.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if v := os.Getenv(key); v != "" {
			_ = fs.Set(name, v)
		}
	}
}

func (app *App) open() error {
	if strings.TrimSpace(app.Dir) == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return err
		}
		app.Dir = d
	}
	app.store = store.Store{Dir: app.Dir}
	if err := app.store.Ensure(); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	cfg, err := app.store.LoadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if v := envOr("PHOTOMAKER_CATALOGS", ""); v != "" {
		cfg.Catalogs = strings.Split(v, ",")
	}
	app.config = cfg

	if strings.TrimSpace(app.Server) == "" {
		app.Server = cfg.Server
	}
	if strings.TrimSpace(app.Server) == "" {
		app.Server = defaultServer
	}
	if strings.TrimSpace(app.Auth) == "" {
		app.Auth = cfg.Auth
	}

	logPath := app.LogFile
	if logPath == "" {
		logPath = app.store.LogPath()
	}
	c, err := logging.Setup(logPath, logging.ParseLevel(os.Getenv("PHOTOMAKER_LOG_LEVEL")))
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	app.logCloser = c
	app.metrics = metrics.New()
	return nil
}

func (app *App) close() error {
	var err error
	if app.MetricsFile != "" && app.metrics != nil {
		if werr := app.metrics.WriteTextfile(app.MetricsFile); werr != nil {
			err = fmt.Errorf("metrics file: %w", werr)
		}
	}
	if app.logCloser != nil {
		_ = app.logCloser.Close()
		app.logCloser = nil
	}
	return err
}

// session opens the backend session for the configured server and auth mode.
func (app *App) session(ctx context.Context) (*auth.Session, error) {
	mode, err := auth.ParseMode(app.Auth)
	if err != nil {
		return nil, err
	}
	return auth.Open(ctx, app.Server, mode, app.store, app.Token)
}

func (app *App) maxBytes() int64 {
	if app.config != nil && app.config.MaxBytes > 0 {
		return app.config.MaxBytes
	}
	return 0
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	slog.Debug("Command failed", "cmd", cmd.CommandPath(), "err", err)
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
