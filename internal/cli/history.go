package cli

import (
	"encoding/json"
	"time"

	"photomaker/internal/upload"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCmd(app *App) *cobra.Command {
	var limit int
	var withResults bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past submissions (newest first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := app.store.ListSubmissions(cmd.Context(), limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			out := make([]map[string]any, 0, len(subs))
			for _, s := range subs {
				row := map[string]any{
					"id":        s.ID,
					"createdAt": s.CreatedAt.Format(time.RFC3339),
					"ago":       humanize.Time(s.CreatedAt),
					"server":    s.Server,
					"catalog":   s.Catalog,
					"state":     s.State,
					"files":     s.Files,
					"succeeded": s.Succeeded,
					"failed":    s.Failed,
				}
				if s.Error != "" {
					row["error"] = s.Error
				}
				if withResults && len(s.Results) > 0 {
					var items []upload.ItemResult
					if err := json.Unmarshal(s.Results, &items); err == nil {
						row["results"] = items
					}
				}
				out = append(out, row)
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum submissions to show (0 for all)")
	cmd.Flags().BoolVar(&withResults, "results", false, "Include per-file results")
	return cmd
}
