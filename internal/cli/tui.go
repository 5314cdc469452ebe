package cli

import (
	"context"
	"os"
	"strings"

	"photomaker/internal/intake"
	"photomaker/internal/store"
	"photomaker/internal/tui"
	"photomaker/internal/upload"

	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	var catalog string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive TUI (default when no command is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUIWith(cmd.Context(), app, catalog)
		},
	}
	cmd.Flags().StringVar(&catalog, "catalog", "", "Preselect a catalog")
	return cmd
}

func runTUI(ctx context.Context, app *App) error {
	return runTUIWith(ctx, app, "")
}

func runTUIWith(ctx context.Context, app *App, catalog string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := app.session(ctx)
	if err != nil {
		return err
	}

	theme := strings.TrimSpace(os.Getenv("PHOTOMAKER_THEME"))
	if theme == "" {
		theme, _ = app.store.Theme(ctx)
	}

	in := intake.New(intake.NewList(nil), nil)
	if n := app.maxBytes(); n > 0 {
		in.MaxBytes = n
	}

	return tui.Run(tui.Options{
		Context:      ctx,
		Store:        app.store,
		Session:      sess,
		Sender:       upload.NewClient(app.Server, sess.Client()),
		Intake:       in,
		Catalogs:     app.config.CatalogList(),
		Catalog:      catalog,
		Theme:        theme,
		Server:       app.Server,
		Metrics:      app.metrics,
		Observe:      upload.Chain(app.metrics.ObserveSubmission, upload.HistoryObserver(app.store, app.Server)),
		CameraDevice: os.Getenv("PHOTOMAKER_CAMERA"),
	})
}

// rememberCatalog stores the catalog as the TUI's last selection.
func rememberCatalog(st store.Store, catalog string) {
	s, err := st.LoadTUIState()
	if err != nil || s == nil {
		return
	}
	s.Catalog = catalog
	_ = st.SaveTUIState(s)
}
