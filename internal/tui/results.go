package tui

import (
	"fmt"
	"strings"

	"photomaker/internal/upload"
)

// resultsMarkdown renders a finished submission as a markdown report.
func resultsMarkdown(res *upload.Results) string {
	if res == nil {
		return ""
	}
	ok, failed := res.Counts()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", mdEscape(res.Catalog))
	fmt.Fprintf(&b, "%d processed, %d failed.\n\n", ok, failed)
	b.WriteString("| # | File | Design | Result |\n|---|---|---|---|\n")
	for i, it := range res.Items {
		result := it.URL
		if !it.OK() {
			result = "**failed**: " + it.Error
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, mdEscape(it.Filename), mdEscape(it.DesignNumber), mdEscape(result))
	}
	return b.String()
}

func mdEscape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
