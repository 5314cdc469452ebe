package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"photomaker/internal/grid"
	"photomaker/internal/intake"
	"photomaker/internal/notify"
	"photomaker/internal/upload"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".JPG", ".JPEG", ".PNG"}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = min(max(msg.Width/3, 10), 50)
		m.picker.Height = max(m.bodyHeight()-2, 3)
		m.resultsV.Width = msg.Width
		m.resultsV.Height = m.bodyHeight()
		m.refreshResults()
		next := m.syncGrid()
		return m, next

	case frameTickMsg:
		if msg.seq != m.frameSeq {
			return m, nil
		}
		m.frameScheduled = false
		m.renderer.Step()
		if m.renderer.Pending() {
			next := m.scheduleFrame()
			return m, next
		}
		return m, nil

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case spinner.TickMsg:
		if m.compressing == 0 && !m.cameraBusy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case intakeDoneMsg:
		m.compressing = max(m.compressing-1, 0)
		next := m.commitBatch(msg)
		return m, next

	case cameraDoneMsg:
		m.cameraBusy = false
		if msg.err != nil {
			slog.Warn("Camera capture failed", "err", msg.err)
			next := m.notify(notify.Error("%s", msg.err.Error()))
			return m, next
		}
		next := m.startIntake(prepareCmd(m.ctx, m.intake, m.list.Keys(), []intake.RawFile{msg.file}))
		return m, next

	case submitDoneMsg:
		next := m.finishSubmit(msg)
		return m, next

	case progressTickMsg:
		if msg.seq != m.progressSeq || m.progress == nil || m.progress.Done() {
			return m, nil
		}
		m.progress.Tick()
		return m, progressTick(msg.seq)

	case progressHideMsg:
		if msg.seq == m.progressSeq {
			m.showProgress = false
		}
		return m, nil

	case redirectMsg:
		if msg.seq != m.redirectSeq {
			return m, nil
		}
		next := m.toLogin()
		return m, next

	case loginDoneMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.loginError = msg.err.Error()
			m.passInput.SetValue("")
			next := m.notify(notify.Error("%s", msg.err.Error()))
			return m, next
		}
		m.loginError = ""
		m.passInput.SetValue("")
		m.userInput.Blur()
		m.passInput.Blur()
		m.view = viewMain
		m.focus = focusGrid
		next := tea.Batch(m.notify(notify.Success("Logged in")), m.syncGrid())
		return m, next

	case logoutDoneMsg:
		focusCmd := m.toLogin()
		if msg.err != nil {
			next := tea.Batch(focusCmd, m.notify(notify.Warning("%s", msg.err.Error())))
			return m, next
		}
		next := tea.Batch(focusCmd, m.notify(notify.Info("Logged out")))
		return m, next

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.saveState()
			return m, tea.Quit
		}
		switch m.view {
		case viewLogin:
			return m.updateLogin(msg)
		case viewResults:
			return m.updateResults(msg)
		}
		return m.updateMain(msg)
	}

	// Everything else (cursor blink, picker directory reads) belongs to the focused widget.
	return m.updateFocused(msg)
}

func (m appModel) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.view == viewLogin:
		if m.passInput.Focused() {
			m.passInput, cmd = m.passInput.Update(msg)
		} else {
			m.userInput, cmd = m.userInput.Update(msg)
		}
	case m.focus == focusPicker:
		m.picker, cmd = m.picker.Update(msg)
	case m.focus == focusDesign:
		m.designInput, cmd = m.designInput.Update(msg)
	case m.focus == focusPaths:
		m.pathInput, cmd = m.pathInput.Update(msg)
	}
	return m, cmd
}

func (m appModel) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusDesign:
		return m.updateDesign(msg)
	case focusPaths:
		return m.updatePaths(msg)
	case focusPicker:
		return m.updatePicker(msg)
	case focusSidebar:
		return m.updateSidebar(msg)
	case focusConfirmClear:
		return m.updateConfirmClear(msg)
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.saveState()
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, k.Up):
		m.moveSelection(-m.columns())
	case key.Matches(msg, k.Down):
		m.moveSelection(m.columns())
	case key.Matches(msg, k.Left):
		m.moveSelection(-1)
	case key.Matches(msg, k.Right):
		m.moveSelection(1)
	case key.Matches(msg, k.Edit):
		next := m.startEditing()
		return m, next
	case key.Matches(msg, k.Add):
		m.focus = focusPaths
		m.pathInput.SetValue("")
		next := m.pathInput.Focus()
		return m, next
	case key.Matches(msg, k.Browse):
		next := m.openFilePicker()
		return m, next
	case key.Matches(msg, k.Camera):
		if m.cameraBusy {
			return m, nil
		}
		m.cameraBusy = true
		return m, tea.Batch(captureCmd(m.ctx, m.opts.Capture), m.spinner.Tick)
	case key.Matches(msg, k.Remove):
		next := m.removeSelected()
		return m, next
	case key.Matches(msg, k.Clear):
		if m.list.Len() > 0 {
			m.focus = focusConfirmClear
			m.confirmFocus = confirmFocusCancel
		}
	case key.Matches(msg, k.Catalog):
		m.sidebarOpen = true
		m.focus = focusSidebar
		next := m.syncGrid()
		return m, next
	case key.Matches(msg, k.Sidebar):
		m.sidebarOpen = !m.sidebarOpen
		m.saveState()
		next := m.syncGrid()
		return m, next
	case key.Matches(msg, k.Submit):
		next := m.submit()
		return m, next
	case key.Matches(msg, k.Retry):
		if !m.canRetry {
			return m, nil
		}
		next := m.submit()
		return m, next
	case key.Matches(msg, k.Results):
		if m.results != nil {
			m.view = viewResults
			m.refreshResults()
		}
	case key.Matches(msg, k.Theme):
		m.toggleTheme()
	case key.Matches(msg, k.Logout):
		if m.opts.Session == nil {
			return m, nil
		}
		return m, logoutCmd(m.ctx, m.opts.Session)
	}
	return m, nil
}

func (m *appModel) toggleTheme() {
	m.theme = applyTheme(otherTheme(m.theme))
	if err := m.opts.Store.SetTheme(m.ctx, m.theme); err != nil {
		slog.Warn("Could not save theme", "err", err)
	}
	m.refreshResults()
}

func (m appModel) updateDesign(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.designInput.Blur()
		m.focus = focusGrid
		return m, nil
	case "tab", "shift+tab":
		m.designInput.Blur()
		m.focus = focusGrid
		if msg.String() == "tab" {
			m.moveSelection(1)
		} else {
			m.moveSelection(-1)
		}
		next := m.startEditing()
		return m, next
	}
	var cmd tea.Cmd
	m.designInput, cmd = m.designInput.Update(msg)
	if c, ok := m.selectedCard(); ok {
		c.SetDesign(m.designInput.Value())
	}
	return m, cmd
}

func (m appModel) updatePaths(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pathInput.Blur()
		m.focus = focusGrid
		next := m.syncGrid()
		return m, next
	case "enter":
		paths := intake.SplitPaths(m.pathInput.Value())
		m.pathInput.Blur()
		m.pathInput.SetValue("")
		m.focus = focusGrid
		if len(paths) == 0 {
			next := m.syncGrid()
			return m, next
		}
		next := tea.Batch(m.syncGrid(), m.startIntake(preparePathsCmd(m.ctx, m.intake, m.list.Keys(), paths)))
		return m, next
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m *appModel) openFilePicker() tea.Cmd {
	fp := filepicker.New()
	fp.AllowedTypes = imageExtensions
	fp.FileAllowed = true
	fp.DirAllowed = false
	fp.ShowPermissions = false
	fp.ShowSize = true
	fp.AutoHeight = false
	fp.Height = max(m.bodyHeight()-2, 3)
	fp.Cursor = glyphPointer()
	fp.KeyMap.Back = key.NewBinding(
		key.WithKeys("h", "backspace", "left"),
		key.WithHelp("h", "up"),
	)
	fp.Styles.Cursor = styleTitle()
	fp.Styles.Selected = styleTitle()
	fp.Styles.DisabledFile = styleMuted()
	fp.Styles.DisabledSelected = styleMuted()
	fp.Styles.FileSize = styleMuted().Width(fp.Styles.FileSize.GetWidth())

	dir := strings.TrimSpace(m.state.LastDir)
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = home
		}
	}
	if dir == "" {
		dir = "."
	}
	fp.CurrentDirectory = dir

	m.picker = fp
	m.focus = focusPicker
	return fp.Init()
}

func (m appModel) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" || msg.String() == "q" {
		m.focus = focusGrid
		return m, nil
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.focus = focusGrid
		m.state.LastDir = filepath.Dir(path)
		m.saveState()
		next := tea.Batch(cmd, m.startIntake(preparePathsCmd(m.ctx, m.intake, m.list.Keys(), []string{path})))
		return m, next
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		next := tea.Batch(cmd, m.notify(notify.Warning("%s is not an image", filepath.Base(path))))
		return m, next
	}
	return m, cmd
}

func (m appModel) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "tab":
		m.focus = focusGrid
		return m, nil
	case "enter":
		if it, ok := m.catalogs.SelectedItem().(catalogItem); ok {
			m.catalog = string(it)
			m.focus = focusGrid
			m.saveState()
			next := m.notify(notify.Info("Catalog: %s", m.catalog))
			return m, next
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.catalogs, cmd = m.catalogs.Update(msg)
	return m, cmd
}

func (m appModel) updateConfirmClear(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "left", "right":
		if m.confirmFocus == confirmFocusConfirm {
			m.confirmFocus = confirmFocusCancel
		} else {
			m.confirmFocus = confirmFocusConfirm
		}
	case "y":
		next := m.clearAll()
		return m, next
	case "n", "esc":
		m.focus = focusGrid
	case "enter":
		if m.confirmFocus == confirmFocusConfirm {
			next := m.clearAll()
			return m, next
		}
		m.focus = focusGrid
	}
	return m, nil
}

func (m *appModel) clearAll() tea.Cmd {
	m.focus = focusGrid
	n := m.list.Clear()
	m.selected = 0
	m.top = 0
	m.canRetry = false
	return tea.Batch(m.syncGrid(), m.notify(notify.Info("Removed %d image(s)", n)))
}

func (m *appModel) removeSelected() tea.Cmd {
	snap := m.list.Snapshot()
	if m.selected >= len(snap) {
		return nil
	}
	it := snap[m.selected]
	if !m.list.Remove(it.ID) {
		return nil
	}
	return tea.Batch(m.syncGrid(), m.notify(notify.Info("Removed %s", it.File.OriginalName)))
}

func (m appModel) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "q", "R":
		m.view = viewMain
		next := m.syncGrid()
		return m, next
	case "t":
		m.toggleTheme()
		return m, nil
	case "y":
		next := m.copyResultLinks()
		return m, next
	}
	var cmd tea.Cmd
	m.resultsV, cmd = m.resultsV.Update(msg)
	return m, cmd
}

func (m appModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loggingIn {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.saveState()
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		if m.userInput.Focused() {
			m.userInput.Blur()
			next := m.passInput.Focus()
			return m, next
		}
		m.passInput.Blur()
		next := m.userInput.Focus()
		return m, next
	case "enter":
		if m.userInput.Focused() {
			m.userInput.Blur()
			next := m.passInput.Focus()
			return m, next
		}
		user := strings.TrimSpace(m.userInput.Value())
		if user == "" || m.passInput.Value() == "" {
			m.loginError = "Enter a username and password"
			return m, nil
		}
		m.loggingIn = true
		m.loginError = ""
		next := loginCmd(m.ctx, m.opts.Session, user, m.passInput.Value())
		return m, next
	}
	return m.updateFocused(msg)
}

func (m *appModel) toLogin() tea.Cmd {
	m.view = viewLogin
	m.focus = focusGrid
	m.loggingIn = false
	m.passInput.SetValue("")
	m.passInput.Blur()
	return m.userInput.Focus()
}

// startIntake runs a prepare command while the spinner shows progress.
func (m *appModel) startIntake(cmd tea.Cmd) tea.Cmd {
	m.compressing++
	return tea.Batch(cmd, m.spinner.Tick)
}

// commitBatch appends a prepared batch in one step and reports what happened.
func (m *appModel) commitBatch(msg intakeDoneMsg) tea.Cmd {
	if msg.err != nil {
		m.observeIntake(msg.batch.Report())
		if intake.IsValidation(msg.err) {
			return m.notify(notify.Warning("%s", msg.err.Error()))
		}
		return m.notify(notify.Error("%s", msg.err.Error()))
	}
	rep, err := m.list.Commit(msg.batch)
	m.observeIntake(rep)
	if err != nil {
		return m.notify(notify.Warning("%s", err.Error()))
	}

	var n notify.Notification
	switch {
	case len(rep.Failures) > 0:
		n = notify.Warning("%s: %s", rep.Summary(), failureNames(rep.Failures))
	case rep.Accepted == 0 && rep.Duplicates > 0:
		n = notify.Info("Already added")
	case rep.Compressed > 0:
		n = notify.Success("%s", rep.Summary())
	default:
		n = notify.Info("%s", rep.Summary())
	}
	return tea.Batch(m.syncGrid(), m.notify(n))
}

func failureNames(fs []intake.Failure) string {
	names := make([]string, 0, len(fs))
	for _, f := range fs {
		names = append(names, f.Name)
	}
	return strings.Join(names, ", ")
}

func (m *appModel) observeIntake(rep intake.Report) {
	if m.opts.Metrics != nil {
		m.opts.Metrics.ObserveIntake(rep)
	}
}

func (m *appModel) submit() tea.Cmd {
	if m.opts.Sender == nil {
		return m.notify(notify.Error("No server configured"))
	}
	p, err := m.machine.Begin(m.catalog, m.list.Snapshot())
	if err != nil {
		if errors.Is(err, upload.ErrInFlight) {
			return m.notify(notify.Warning("An upload is already in progress"))
		}
		return m.notify(notify.Warning("%s", err.Error()))
	}
	m.canRetry = false
	m.progress = upload.NewProgress()
	m.progressSeq++
	m.showProgress = true
	return tea.Batch(sendCmd(m.ctx, m.opts.Sender, p), progressTick(m.progressSeq))
}

func (m *appModel) finishSubmit(msg submitDoneMsg) tea.Cmd {
	out := m.machine.Finish(msg.reply, msg.err)
	if m.opts.Observe != nil {
		m.opts.Observe(msg.payload, out, msg.took)
	}
	if m.progress != nil {
		m.progress.Complete()
	}
	seq := m.progressSeq
	cmds := []tea.Cmd{
		tea.Tick(upload.ProgressHideDelay, func(time.Time) tea.Msg { return progressHideMsg{seq: seq} }),
	}

	notice := out.Notice
	switch {
	case out.State == upload.Succeeded:
		m.results = out.Results
		m.view = viewResults
		m.resultsV.GotoTop()
		m.refreshResults()
	case out.RedirectToLogin:
		if m.opts.Session != nil {
			if err := m.opts.Session.Forget(m.ctx); err != nil {
				slog.Warn("Could not clear session", "err", err)
			}
		}
		m.redirectSeq++
		rs := m.redirectSeq
		cmds = append(cmds, tea.Tick(upload.RedirectDelay, func(time.Time) tea.Msg { return redirectMsg{seq: rs} }))
	case out.Retryable:
		m.canRetry = true
		notice.Message = fmt.Sprintf("%s (press r to retry)", notice.Message)
	}
	cmds = append(cmds, m.notify(notice))
	return tea.Batch(cmds...)
}

func (m *appModel) refreshResults() {
	if m.results == nil {
		return
	}
	m.resultsV.SetContent(renderMarkdown(resultsMarkdown(m.results), max(m.width-2, 10), m.theme))
}

// syncGrid hands the current snapshot to the renderer and schedules frames while cards are
// pending.
func (m *appModel) syncGrid() tea.Cmd {
	snap := m.list.Snapshot()
	pending := m.renderer.Sync(snap, m.gridWidth())
	if m.selected >= len(snap) {
		m.selected = max(len(snap)-1, 0)
	}
	m.ensureVisible()
	if pending && !m.frameScheduled {
		return m.scheduleFrame()
	}
	return nil
}

func (m *appModel) scheduleFrame() tea.Cmd {
	m.frameSeq++
	m.frameScheduled = true
	return frameTick(m.frameSeq)
}

func (m appModel) columns() int {
	return max(m.renderer.Layout().Columns, 1)
}

func (m *appModel) moveSelection(delta int) {
	n := m.list.Len()
	if n == 0 {
		return
	}
	m.selected = min(max(m.selected+delta, 0), n-1)
	m.ensureVisible()
}

func (m *appModel) ensureVisible() {
	met := m.renderer.Metrics
	row := m.renderer.Layout().RowOf(m.selected)
	start := row * (met.CardHeight + met.Gap)
	end := start + met.CardHeight + 2*met.Gap
	h := m.bodyHeight()
	if start < m.top {
		m.top = start
	}
	if end > m.top+h {
		m.top = end - h
	}
	maxTop := max(m.renderer.Layout().Height-h, 0)
	m.top = min(max(m.top, 0), maxTop)
}

func (m appModel) selectedCard() (*grid.Card, bool) {
	snap := m.list.Snapshot()
	if m.selected >= len(snap) {
		return nil, false
	}
	return m.renderer.Container().Card(snap[m.selected].ID)
}

func (m *appModel) startEditing() tea.Cmd {
	c, ok := m.selectedCard()
	if !ok {
		return nil
	}
	m.designInput.SetValue(c.Design())
	m.designInput.CursorEnd()
	m.designInput.Width = m.renderer.Metrics.CardWidth - 6
	m.focus = focusDesign
	return m.designInput.Focus()
}
