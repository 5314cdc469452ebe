package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"photomaker/internal/grid"
	"photomaker/internal/intake"
)

const appTitle = "Shobha Sarees Photo Maker"

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	var body string
	switch m.view {
	case viewLogin:
		body = m.viewLogin(m.height - 3)
	case viewResults:
		body = grid.Fit(m.resultsV.View(), m.width, m.bodyHeight())
	default:
		body = m.viewMain()
	}
	return strings.Join([]string{m.viewHeader(), body, m.viewStatus(), m.viewHelp()}, "\n")
}

func (m appModel) viewHeader() string {
	left := styleTitle().Render(appTitle)
	catalog := m.catalog
	if catalog == "" {
		catalog = "no catalog"
	}
	sep := " " + glyphSeparator() + " "
	right := styleMuted().Render(fmt.Sprintf("%s%s%d/%d images%s%s", catalog, sep, m.list.Len(), intake.MaxItems, sep, m.theme))
	gap := m.width - xansi.StringWidth(left) - xansi.StringWidth(right)
	if gap < 1 {
		return grid.Fit(left, m.width, 1)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m appModel) viewMain() string {
	h := m.bodyHeight()
	var pane string
	switch m.focus {
	case focusPicker:
		pane = styleTitle().Render("Pick an image") + "  " + styleMuted().Render(m.picker.CurrentDirectory) + "\n\n" + m.picker.View()
	case focusConfirmClear:
		modal := renderConfirmModal(m.gridWidth(), "Clear all images",
			fmt.Sprintf("Remove all %d image(s) from this submission?", m.list.Len()),
			"Clear", "Cancel", m.confirmFocus)
		pane = lipgloss.Place(m.gridWidth(), h, lipgloss.Center, lipgloss.Center, modal)
	default:
		pane = m.viewGrid(h)
	}
	pane = grid.Fit(pane, m.gridWidth(), h)
	if m.sidebarOpen {
		side := grid.Fit(m.renderSidebar(h), sidebarWidth+1, h)
		pane = lipgloss.JoinHorizontal(lipgloss.Top, side, pane)
	}
	if m.focus == focusPaths {
		pane += "\n" + renderInputLine(m.width, m.pathInput.View())
	}
	return pane
}

func (m appModel) viewGrid(height int) string {
	if m.list.Len() == 0 {
		msg := strings.Join([]string{
			"No images yet.",
			"",
			styleMuted().Render("a: add paths   o: browse   c: camera"),
		}, "\n")
		return lipgloss.Place(m.gridWidth(), height, lipgloss.Center, lipgloss.Center, msg)
	}
	return m.renderer.View(m.top, height, m.drawCard)
}

// drawCard renders one placed card: preview, file name, size and the design number.
func (m appModel) drawCard(index int, c *grid.Card) string {
	met := m.renderer.Metrics
	innerW := met.CardWidth - 2
	innerH := met.CardHeight - 2
	previewH := max(innerH-4, 1)

	f := c.Item.File
	name := fmt.Sprintf("%d. %s", index+1, f.OriginalName)
	size := humanize.IBytes(uint64(f.Size))
	if f.Compressed {
		size = fmt.Sprintf("%s %s %s", humanize.IBytes(uint64(f.OriginalSize)), glyphArrow(), size)
	}

	design := "# " + c.Design()
	switch {
	case m.focus == focusDesign && index == m.selected:
		design = "# " + m.designInput.View()
	case strings.TrimSpace(c.Design()) == "":
		design = styleMuted().Render(fmt.Sprintf("# Design_%d", index+1))
	}

	body := strings.Join([]string{
		c.Item.Preview.Render(innerW, previewH),
		xansi.Truncate(name, innerW, "…"),
		styleMuted().Render(size),
		design,
	}, "\n")

	border := colorCardBorder
	if index == m.selected && (m.focus == focusGrid || m.focus == focusDesign) {
		border = colorSelectedBorder
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Render(grid.Fit(body, innerW, innerH))
}

func (m appModel) viewStatus() string {
	var parts []string
	if m.showProgress && m.progress != nil {
		parts = append(parts, m.bar.ViewAs(m.progress.Fraction())+fmt.Sprintf(" %3d%% %s", m.progress.Percent(), m.progress.Label()))
	}
	if m.compressing > 0 {
		parts = append(parts, m.spinner.View()+" Compressing images")
	}
	if m.cameraBusy {
		parts = append(parts, m.spinner.View()+" Capturing")
	}
	if m.toast != nil {
		parts = append(parts, toastStyle(m.toast.Kind).Render(m.toast.Message))
	}
	return grid.Fit(strings.Join(parts, "   "), m.width, 1)
}

func (m appModel) viewHelp() string {
	switch m.view {
	case viewLogin:
		return styleMuted().Render("tab: next field   enter: log in   esc: quit")
	case viewResults:
		return styleMuted().Render("↑/↓: scroll   y: copy links   t: theme   esc: back")
	}
	switch m.focus {
	case focusDesign:
		return styleMuted().Render("type the design number   tab: next card   enter/esc: done")
	case focusPaths:
		return styleMuted().Render("enter: add   esc: cancel")
	case focusPicker:
		return styleMuted().Render("↑/↓: move   l/enter: open/select   h: up   esc: close")
	case focusSidebar:
		return styleMuted().Render("↑/↓: move   enter: select catalog   esc: back")
	}
	return m.help.View(m.keys)
}

func (m appModel) viewLogin(height int) string {
	w := modalBodyWidth(m.width)
	lines := []string{
		renderInputLine(w, m.userInput.View()),
		"",
		renderInputLine(w, m.passInput.View()),
	}
	if m.loggingIn {
		lines = append(lines, "", styleMuted().Render("Logging in…"))
	}
	if m.loginError != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(colorError).Render(m.loginError))
	}
	if m.opts.Server != "" {
		lines = append(lines, "", styleMuted().Render(m.opts.Server))
	}
	box := renderModalBox(m.width, "Log in", strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, max(height, 1), lipgloss.Center, lipgloss.Center, box)
}
