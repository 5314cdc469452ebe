package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"photomaker/internal/intake"
)

type catalogItem string

func (c catalogItem) FilterValue() string { return string(c) }

type catalogDelegate struct{}

func (catalogDelegate) Height() int                             { return 1 }
func (catalogDelegate) Spacing() int                            { return 0 }
func (catalogDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (catalogDelegate) Render(w io.Writer, m list.Model, index int, it list.Item) {
	name, ok := it.(catalogItem)
	if !ok {
		return
	}
	line := "  " + string(name)
	if index == m.Index() {
		line = lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true).
			Render(glyphPointer() + " " + string(name))
	}
	fmt.Fprint(w, line)
}

func newCatalogList(names []string, selected string) list.Model {
	items := make([]list.Item, 0, len(names))
	sel := 0
	for i, n := range names {
		items = append(items, catalogItem(n))
		if n == selected {
			sel = i
		}
	}
	l := list.New(items, catalogDelegate{}, sidebarWidth, 10)
	l.Title = "Catalog"
	l.Styles.Title = styleTitle()
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(true)
	l.Select(sel)
	return l
}

func (m appModel) renderSidebar(height int) string {
	m.catalogs.SetSize(sidebarWidth, max(height-6, 3))

	catalog := m.catalog
	if catalog == "" {
		catalog = styleMuted().Render("none selected")
	}
	lines := []string{
		m.catalogs.View(),
		"",
		"Selected: " + catalog,
		fmt.Sprintf("Images: %d/%d", m.list.Len(), intake.MaxItems),
	}
	if m.opts.Server != "" {
		lines = append(lines, styleMuted().Render(m.opts.Server))
	}
	border := colorCardBorder
	if m.focus == focusSidebar {
		border = colorSelectedBorder
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(border).
		Width(sidebarWidth).
		Height(height).
		Render(strings.Join(lines, "\n"))
}
