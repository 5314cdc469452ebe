package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"photomaker/internal/notify"
	"photomaker/internal/upload"
)

var writeClipboard = clipboard.WriteAll

// resultLinks lists the URLs of successful results, one per line. Server-relative URLs are
// resolved against server.
func resultLinks(res *upload.Results, server string) []string {
	if res == nil {
		return nil
	}
	var out []string
	for _, it := range res.Items {
		u := strings.TrimSpace(it.URL)
		if !it.OK() || u == "" {
			continue
		}
		if strings.HasPrefix(u, "/") && server != "" {
			u = strings.TrimRight(server, "/") + u
		}
		out = append(out, u)
	}
	return out
}

func (m *appModel) copyResultLinks() tea.Cmd {
	links := resultLinks(m.results, m.opts.Server)
	if len(links) == 0 {
		return m.notify(notify.Warning("No result links to copy"))
	}
	if err := writeClipboard(strings.ReplaceAll(strings.Join(links, "\n"), "\r\n", "\n")); err != nil {
		return m.notify(notify.Error("Copy failed: %v", err))
	}
	return m.notify(notify.Success("Copied %d link(s)", len(links)))
}
