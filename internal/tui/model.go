package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"photomaker/internal/camera"
	"photomaker/internal/grid"
	"photomaker/internal/intake"
	"photomaker/internal/metrics"
	"photomaker/internal/notify"
	"photomaker/internal/store"
	"photomaker/internal/upload"
)

// Session is the login state the TUI drives; *auth.Session implements it.
type Session interface {
	LoggedIn() bool
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	Forget(ctx context.Context) error
}

// CaptureFunc grabs one camera frame.
type CaptureFunc func(ctx context.Context) (intake.RawFile, error)

// Options wires the TUI to its collaborators. Session may be nil when the backend needs no
// login.
type Options struct {
	// Context bounds every background command (compression, sends, login, capture); the
	// program exits when it is cancelled.
	Context context.Context

	Store    store.Store
	Session  Session
	Sender   upload.Sender
	Intake   *intake.Intake
	Catalogs []string
	Catalog  string
	Theme    string
	Server   string
	Metrics  *metrics.Metrics
	Observe  upload.Observer

	// Capture defaults to ffmpeg on CameraDevice (empty for the platform default).
	Capture      CaptureFunc
	CameraDevice string
}

type view int

const (
	viewLogin view = iota
	viewMain
	viewResults
)

type focus int

const (
	focusGrid focus = iota
	focusSidebar
	focusDesign
	focusPaths
	focusPicker
	focusConfirmClear
)

const sidebarWidth = 26

type appModel struct {
	opts Options
	ctx  context.Context

	width  int
	height int

	view  view
	focus focus
	theme string
	keys  keyMap
	help  help.Model

	list     *intake.List
	intake   *intake.Intake
	renderer *grid.Renderer
	selected int
	top      int

	frameSeq       int
	frameScheduled bool

	designInput textinput.Model
	pathInput   textinput.Model
	picker      filepicker.Model

	sidebarOpen bool
	catalogs    list.Model
	catalog     string

	compressing int
	cameraBusy  bool
	spinner     spinner.Model

	machine      *upload.Machine
	progress     *upload.Progress
	bar          progress.Model
	showProgress bool
	progressSeq  int
	canRetry     bool

	results  *upload.Results
	resultsV viewport.Model

	toast    *notify.Notification
	toastSeq int

	redirectSeq int

	userInput  textinput.Model
	passInput  textinput.Model
	loggingIn  bool
	loginError string

	confirmFocus confirmModalFocus
	state        *store.TUIState
}

func newAppModel(opts Options) appModel {
	in := opts.Intake
	if in == nil {
		in = intake.New(intake.NewList(nil), nil)
	}
	if opts.Capture == nil {
		opts.Capture = cameraCapture(opts.CameraDevice)
	}
	st, err := opts.Store.LoadTUIState()
	if err != nil || st == nil {
		st = &store.TUIState{Version: 1}
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	m := appModel{
		opts:        opts,
		ctx:         ctx,
		view:        viewMain,
		theme:       applyTheme(opts.Theme),
		keys:        defaultKeyMap(),
		help:        help.New(),
		list:        in.List,
		intake:      in,
		renderer:    grid.NewRenderer(in.List, grid.DefaultMetrics),
		machine:     &upload.Machine{},
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		resultsV:    viewport.New(80, 20),
		state:       st,
		sidebarOpen: st.SidebarOpen,
	}
	if opts.Session != nil && !opts.Session.LoggedIn() {
		m.view = viewLogin
	}

	m.designInput = textinput.New()
	m.designInput.Placeholder = "design number"
	m.designInput.CharLimit = 64
	m.designInput.Prompt = ""

	m.pathInput = textinput.New()
	m.pathInput.Placeholder = "paste or drop image paths"
	m.pathInput.Prompt = "Add: "

	m.userInput = textinput.New()
	m.userInput.Placeholder = "username"
	m.userInput.Prompt = "Username: "
	m.passInput = textinput.New()
	m.passInput.Placeholder = "password"
	m.passInput.Prompt = "Password: "
	m.passInput.EchoMode = textinput.EchoPassword
	m.passInput.EchoCharacter = glyphBullet()
	if m.view == viewLogin {
		m.userInput.Focus()
	}

	m.catalog = strings.TrimSpace(opts.Catalog)
	if m.catalog == "" {
		m.catalog = strings.TrimSpace(st.Catalog)
	}
	m.catalogs = newCatalogList(opts.Catalogs, m.catalog)
	return m
}

func cameraCapture(device string) CaptureFunc {
	return func(ctx context.Context) (intake.RawFile, error) {
		cam, err := camera.Open(device)
		if err != nil {
			return intake.RawFile{}, err
		}
		defer cam.Close()
		return cam.Capture(ctx)
	}
}

func (m appModel) Init() tea.Cmd {
	if m.view == viewLogin {
		return textinput.Blink
	}
	return nil
}

// gridWidth is the width available to cards.
func (m appModel) gridWidth() int {
	w := m.width
	if m.sidebarOpen {
		w -= sidebarWidth + 1
	}
	return max(w, 0)
}

// bodyHeight is the number of lines between the header and the footer.
func (m appModel) bodyHeight() int {
	h := m.height - 3 // header, status line, help
	if m.help.ShowAll && m.view == viewMain {
		h -= 4 // full help is five lines
	}
	if m.focus == focusPaths {
		h--
	}
	return max(h, 1)
}

func (m *appModel) saveState() {
	m.state.Catalog = m.catalog
	m.state.SidebarOpen = m.sidebarOpen
	_ = m.opts.Store.SaveTUIState(m.state)
}

func (m *appModel) notify(n notify.Notification) tea.Cmd {
	m.toastSeq++
	seq := m.toastSeq
	m.toast = &n
	return tea.Tick(n.Duration(), func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

func toastStyle(k notify.Kind) lipgloss.Style {
	c := colorInfo
	switch k {
	case notify.KindSuccess:
		c = colorSuccess
	case notify.KindWarning:
		c = colorWarning
	case notify.KindError:
		c = colorError
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}
