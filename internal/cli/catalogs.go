package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"photomaker/internal/upload"

	"github.com/spf13/cobra"
)

func newCatalogsCmd(app *App) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "catalogs",
		Short: "List catalog options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := app.config.CatalogList()
			source := "config"
			if remote {
				ctx, cancel := withTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				sess, err := app.session(ctx)
				if err != nil {
					return writeErr(cmd, err)
				}
				got, err := upload.NewClient(app.Server, sess.Client()).Catalogs(ctx)
				if err != nil {
					return writeErr(cmd, fmt.Errorf("catalogs: %w", err))
				}
				names = got
				source = app.Server
			}

			selected := ""
			if st, err := app.store.LoadTUIState(); err == nil && st != nil {
				selected = st.Catalog
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"catalogs": names,
					"selected": selected,
					"source":   source,
				},
			})
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch the list from the backend instead of config.yaml")
	cmd.AddCommand(newCatalogsSetCmd(app))
	return cmd
}

func newCatalogsSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>...",
		Short: "Save the catalog list to config.yaml",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var names []string
			for _, a := range args {
				if a = strings.TrimSpace(a); a != "" {
					names = append(names, a)
				}
			}
			if len(names) == 0 {
				return writeErr(cmd, errors.New("catalog names must not be blank"))
			}

			// Reload so env overrides are not written back.
			cfg, err := app.store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg.Catalogs = names
			if err := app.store.SaveConfig(cfg); err != nil {
				return writeErr(cmd, err)
			}
			app.config.Catalogs = names
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"catalogs": names,
					"path":     app.store.ConfigPath(),
				},
			})
		},
	}
}
