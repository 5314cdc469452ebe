package cli

import (
	"errors"
	"fmt"
	"strings"

	"photomaker/internal/intake"
	"photomaker/internal/upload"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newUploadCmd(app *App) *cobra.Command {
	var catalog string
	var designs []string

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Compress and submit images without the TUI",
		Long: strings.TrimSpace(`
Compress and submit up to ten images to the backend.

Design numbers are applied in order to the images that were accepted; a blank or
missing design number becomes Design_<n>. The catalog defaults to the one last
selected in the TUI.
`),
		Example: strings.TrimSpace(`
photomaker upload front.jpg back.png --catalog Heritage --design 101 --design 102
photomaker upload ~/Pictures/*.jpg --catalog Lavanya
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if strings.TrimSpace(catalog) == "" {
				if st, err := app.store.LoadTUIState(); err == nil && st != nil {
					catalog = st.Catalog
				}
			}

			raws, err := intake.FromPaths(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			in := intake.New(intake.NewList(nil), nil)
			if n := app.maxBytes(); n > 0 {
				in.MaxBytes = n
			}
			rep, err := in.AddFiles(ctx, raws)
			app.metrics.ObserveIntake(rep)
			if err != nil {
				return writeErr(cmd, err)
			}
			if in.List.Len() == 0 {
				return writeErr(cmd, fmt.Errorf("no images to upload (%s)", rep.Summary()))
			}
			for i, it := range in.List.Snapshot() {
				if i < len(designs) {
					in.List.SetDesign(it.ID, designs[i])
				}
			}

			sess, err := app.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			sub := upload.NewSubmitter(upload.NewClient(app.Server, sess.Client()))
			sub.Observe = upload.Chain(app.metrics.ObserveSubmission, upload.HistoryObserver(app.store, app.Server))

			out, err := sub.Submit(ctx, catalog, in.List)
			if err != nil {
				return writeErr(cmd, err)
			}
			if out.State != upload.Succeeded {
				failure := out.Err
				if failure == nil {
					failure = errors.New(out.Notice.Message)
				}
				var ae *upload.AuthError
				if errors.As(failure, &ae) {
					_ = sess.Forget(ctx)
					return writeErr(cmd, fmt.Errorf("%w; run `photomaker login` and try again", failure))
				}
				return writeErr(cmd, failure)
			}
			rememberCatalog(app.store, catalog)

			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"catalog": out.Results.Catalog,
					"intake":  intakeSummary(in.List, rep),
					"results": out.Results.Items,
					"message": out.Notice.Message,
				},
			})
		},
	}

	cmd.Flags().StringVar(&catalog, "catalog", "", "Catalog to upload into (default: last used)")
	cmd.Flags().StringArrayVar(&designs, "design", nil, "Design number for the next accepted image (repeatable)")
	return cmd
}

func intakeSummary(list *intake.List, rep intake.Report) map[string]any {
	files := make([]map[string]any, 0, list.Len())
	for _, it := range list.Snapshot() {
		f := map[string]any{
			"name":   it.File.Name,
			"design": upload.DesignLabel(it.Design, len(files)),
			"size":   humanize.IBytes(uint64(it.File.Size)),
		}
		if it.File.Compressed {
			f["originalSize"] = humanize.IBytes(uint64(it.File.OriginalSize))
		}
		files = append(files, f)
	}
	failures := make([]string, 0, len(rep.Failures))
	for _, fl := range rep.Failures {
		failures = append(failures, fmt.Sprintf("%s: %v", fl.Name, fl.Err))
	}
	return map[string]any{
		"summary":    rep.Summary(),
		"files":      files,
		"compressed": rep.Compressed,
		"duplicates": rep.Duplicates,
		"notImages":  rep.TypeRejected,
		"failures":   failures,
	}
}
