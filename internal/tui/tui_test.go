package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"photomaker/internal/camera"
	"photomaker/internal/intake"
	"photomaker/internal/notify"
	"photomaker/internal/store"
	"photomaker/internal/upload"
)

type fakeSender struct {
	calls int
}

func (f *fakeSender) Send(context.Context, upload.Payload) (upload.Reply, error) {
	f.calls++
	return upload.Reply{StatusCode: 200, Body: []byte(`{"results":[]}`)}, nil
}

type fakeSession struct {
	loggedIn bool
	forgot   int
}

func (s *fakeSession) LoggedIn() bool { return s.loggedIn }
func (s *fakeSession) Login(_ context.Context, user, pass string) error {
	if user != "admin" || pass != "secret" {
		return errors.New("Invalid credentials")
	}
	s.loggedIn = true
	return nil
}
func (s *fakeSession) Logout(context.Context) error { s.loggedIn = false; return nil }
func (s *fakeSession) Forget(context.Context) error {
	s.forgot++
	s.loggedIn = false
	return nil
}

func pngFile(t *testing.T, name string) intake.RawFile {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 40, B: uint8(y * 30), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return intake.RawFile{Name: name, Data: buf.Bytes()}
}

func newTestModel(t *testing.T, opts Options) appModel {
	t.Helper()
	if opts.Store.Dir == "" {
		opts.Store = store.Store{Dir: t.TempDir()}
	}
	if opts.Catalogs == nil {
		opts.Catalogs = store.DefaultCatalogs
	}
	m := newAppModel(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(appModel)
}

func update(t *testing.T, m appModel, msg tea.Msg) appModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(appModel)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// addFiles runs the prepare step synchronously and feeds its message back.
func addFiles(t *testing.T, m appModel, files ...intake.RawFile) appModel {
	t.Helper()
	msg := prepareCmd(context.Background(), m.intake, m.list.Keys(), files)()
	m.compressing++
	return update(t, m, msg)
}

// drainFrames delivers frame ticks until no batch is pending.
func drainFrames(t *testing.T, m appModel) (appModel, int) {
	t.Helper()
	frames := 0
	for m.frameScheduled {
		m = update(t, m, frameTickMsg{seq: m.frameSeq})
		frames++
		if frames > 100 {
			t.Fatalf("frames never settled")
		}
	}
	return m, frames
}

func TestAddFiles_CardsArriveInFrameBatches(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, Options{})
	var files []intake.RawFile
	for i := 0; i < 6; i++ {
		files = append(files, pngFile(t, fmt.Sprintf("saree-%d.png", i)))
	}
	m = addFiles(t, m, files...)
	if m.list.Len() != 6 {
		t.Fatalf("list len = %d, want 6", m.list.Len())
	}
	if m.renderer.Watermark() != 0 || !m.frameScheduled {
		t.Fatalf("expected cards to wait for a frame tick, watermark=%d scheduled=%v", m.renderer.Watermark(), m.frameScheduled)
	}

	m, frames := drainFrames(t, m)
	if frames != 2 {
		t.Fatalf("6 cards took %d frames, want 2", frames)
	}
	if m.renderer.Container().Len() != 6 {
		t.Fatalf("placed %d cards, want 6", m.renderer.Container().Len())
	}
	if m.toast == nil || m.toast.Kind != notify.KindInfo || !strings.Contains(m.toast.Message, "6 added") {
		t.Fatalf("unexpected toast: %+v", m.toast)
	}

	// A stale tick does nothing.
	before := m.renderer.Watermark()
	m = update(t, m, frameTickMsg{seq: m.frameSeq - 1})
	if m.renderer.Watermark() != before {
		t.Fatalf("stale frame tick moved the watermark")
	}
}

func TestAddFiles_CapRejectionLeavesListUnchanged(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, Options{})
	var files []intake.RawFile
	for i := 0; i < 11; i++ {
		files = append(files, pngFile(t, fmt.Sprintf("p%d.png", i)))
	}
	m = addFiles(t, m, files...)
	if m.list.Len() != 0 {
		t.Fatalf("list len = %d, want 0", m.list.Len())
	}
	if m.toast == nil || m.toast.Kind != notify.KindWarning || !strings.Contains(m.toast.Message, "at most 10") {
		t.Fatalf("unexpected toast: %+v", m.toast)
	}
	if m.compressing != 0 {
		t.Fatalf("compressing counter = %d", m.compressing)
	}
}

func TestDesignEdit_WritesThroughOnEveryKey(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, Options{})
	m = addFiles(t, m, pngFile(t, "a.png"), pngFile(t, "b.png"))
	m, _ = drainFrames(t, m)

	m = update(t, m, runes("l")) // select the second card
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.focus != focusDesign {
		t.Fatalf("expected design focus, got %v", m.focus)
	}
	id := m.list.Snapshot()[1].ID
	for i, r := range "101" {
		m = update(t, m, runes(string(r)))
		it, _ := m.list.Get(id)
		if want := "101"[:i+1]; it.Design != want {
			t.Fatalf("after %d keys design = %q, want %q", i+1, it.Design, want)
		}
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.focus != focusGrid {
		t.Fatalf("expected grid focus after enter, got %v", m.focus)
	}
	if first := m.list.Snapshot()[0]; first.Design != "" {
		t.Fatalf("first card changed: %q", first.Design)
	}
}

func TestSubmit_RejectsReentry(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	m := newTestModel(t, Options{Sender: sender, Catalog: "Heritage"})
	m = addFiles(t, m, pngFile(t, "a.png"))

	m = update(t, m, runes("u"))
	if !m.machine.InFlight() || !m.showProgress {
		t.Fatalf("expected submission in flight with progress shown")
	}
	m = update(t, m, runes("u"))
	if m.toast == nil || m.toast.Message != "An upload is already in progress" {
		t.Fatalf("unexpected toast: %+v", m.toast)
	}

	p, _ := upload.BuildPayload("Heritage", m.list.Snapshot())
	m = update(t, m, submitDoneMsg{payload: p, reply: upload.Reply{StatusCode: 200, Body: []byte(`{"catalog":"Heritage","results":[{"filename":"a.png","status":"success","url":"u"}]}`)}})
	if m.machine.InFlight() {
		t.Fatalf("in-flight flag not cleared")
	}
	if m.view != viewResults || m.results == nil {
		t.Fatalf("expected results view")
	}
	if m.progress.Percent() != 100 {
		t.Fatalf("progress = %d, want 100", m.progress.Percent())
	}
	m = update(t, m, progressHideMsg{seq: m.progressSeq})
	if m.showProgress {
		t.Fatalf("progress still shown after hide delay")
	}
}

func TestSubmit_ValidationNeedsCatalog(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, Options{Sender: &fakeSender{}})
	m = addFiles(t, m, pngFile(t, "a.png"))
	m = update(t, m, runes("u"))
	if m.machine.InFlight() {
		t.Fatalf("submission started without a catalog")
	}
	if m.toast == nil || m.toast.Kind != notify.KindWarning {
		t.Fatalf("unexpected toast: %+v", m.toast)
	}
}

func TestSubmit_UnauthorizedRedirectsToLogin(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{loggedIn: true}
	m := newTestModel(t, Options{Sender: &fakeSender{}, Session: sess, Catalog: "Heritage"})
	m = addFiles(t, m, pngFile(t, "a.png"))
	m = update(t, m, runes("u"))

	p, _ := upload.BuildPayload("Heritage", m.list.Snapshot())
	m = update(t, m, submitDoneMsg{payload: p, reply: upload.Reply{StatusCode: 401, Body: []byte(`{"detail":"Unauthorized"}`)}})
	if m.toast == nil || m.toast.Message != "Session expired, please log in again" || m.toast.Kind != notify.KindError {
		t.Fatalf("unexpected toast: %+v", m.toast)
	}
	if m.machine.InFlight() {
		t.Fatalf("in-flight flag not cleared")
	}
	if m.view != viewMain {
		t.Fatalf("redirected before the delay")
	}
	if sess.forgot != 1 {
		t.Fatalf("session not cleared")
	}

	m = update(t, m, redirectMsg{seq: m.redirectSeq})
	if m.view != viewLogin {
		t.Fatalf("expected login view after redirect")
	}
	if m.list.Len() != 1 {
		t.Fatalf("items lost on redirect")
	}
}

func TestSubmit_NetworkErrorOffersRetry(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	m := newTestModel(t, Options{Sender: sender, Catalog: "Heritage"})
	m = addFiles(t, m, pngFile(t, "a.png"))
	m = update(t, m, runes("u"))

	p, _ := upload.BuildPayload("Heritage", m.list.Snapshot())
	m = update(t, m, submitDoneMsg{payload: p, err: errors.New("connection refused")})
	if !m.canRetry || !strings.Contains(m.toast.Message, "press r to retry") {
		t.Fatalf("expected retry prompt, toast=%+v", m.toast)
	}
	m = update(t, m, runes("r"))
	if !m.machine.InFlight() {
		t.Fatalf("retry did not start a submission")
	}
}

func TestLogin_Flow(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{}
	m := newTestModel(t, Options{Session: sess})
	if m.view != viewLogin {
		t.Fatalf("expected login view")
	}
	for _, r := range "admin" {
		m = update(t, m, runes(string(r)))
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	for _, r := range "secret" {
		m = update(t, m, runes(string(r)))
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(appModel)
	if !m.loggingIn || cmd == nil {
		t.Fatalf("expected login command")
	}
	m = update(t, m, cmd())
	if m.view != viewMain || !sess.loggedIn {
		t.Fatalf("expected main view after login")
	}
}

func TestTheme_TogglePersists(t *testing.T) {
	st := store.Store{Dir: t.TempDir()}
	m := newTestModel(t, Options{Store: st, Theme: store.ThemeLight})
	t.Cleanup(func() { applyTheme(store.ThemeLight) })

	m = update(t, m, runes("t"))
	if m.theme != store.ThemeDark {
		t.Fatalf("theme = %s", m.theme)
	}
	got, err := st.Theme(context.Background())
	if err != nil || got != store.ThemeDark {
		t.Fatalf("persisted theme = %q, %v", got, err)
	}
}

func TestCamera_FailureBecomesNotification(t *testing.T) {
	t.Parallel()

	capture := func(context.Context) (intake.RawFile, error) {
		return intake.RawFile{}, &camera.CameraError{Reason: camera.ReasonNoDevice}
	}
	m := newTestModel(t, Options{Capture: capture})
	m = update(t, m, runes("c"))
	if !m.cameraBusy {
		t.Fatalf("expected capture in progress")
	}
	m = update(t, m, captureCmd(context.Background(), capture)())
	if m.cameraBusy || m.toast == nil || m.toast.Message != "no camera found" {
		t.Fatalf("unexpected state: busy=%v toast=%+v", m.cameraBusy, m.toast)
	}
}

func TestCommands_UseCallerContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	capture := func(ctx context.Context) (intake.RawFile, error) {
		return intake.RawFile{}, ctx.Err()
	}
	m := newTestModel(t, Options{Context: ctx, Capture: capture})
	_, cmd := m.Update(runes("c"))
	if cmd == nil {
		t.Fatalf("expected a capture command")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("expected a batch of commands")
	}
	var done *cameraDoneMsg
	for _, c := range batch {
		if c == nil {
			continue
		}
		if msg, ok := c().(cameraDoneMsg); ok {
			done = &msg
		}
	}
	if done == nil || !errors.Is(done.err, context.Canceled) {
		t.Fatalf("capture did not see the cancelled context: %+v", done)
	}
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, Options{})
	m = addFiles(t, m, pngFile(t, "a.png"), pngFile(t, "b.png"), pngFile(t, "c.png"))
	m, _ = drainFrames(t, m)

	m = update(t, m, runes("x"))
	if m.list.Len() != 2 || m.list.Previews().LiveCount() != 2 {
		t.Fatalf("remove: len=%d live=%d", m.list.Len(), m.list.Previews().LiveCount())
	}
	m, _ = drainFrames(t, m)
	if m.renderer.Container().Len() != 2 {
		t.Fatalf("container has %d cards after removal", m.renderer.Container().Len())
	}

	m = update(t, m, runes("X"))
	if m.focus != focusConfirmClear {
		t.Fatalf("expected confirm modal")
	}
	m = update(t, m, runes("y"))
	if m.list.Len() != 0 || m.list.Previews().LiveCount() != 0 {
		t.Fatalf("clear left items behind")
	}
}

func TestView_RendersChrome(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, Options{Catalog: "Heritage"})
	m = addFiles(t, m, pngFile(t, "a.png"))
	m, _ = drainFrames(t, m)
	out := m.View()
	for _, want := range []string{appTitle, "Heritage", "1/10 images", "a.png"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n") + 1; lines != 40 {
		t.Fatalf("view has %d lines, want 40", lines)
	}
}

func TestResultsMarkdown(t *testing.T) {
	t.Parallel()

	md := resultsMarkdown(&upload.Results{
		Catalog: "Heritage",
		Items: []upload.ItemResult{
			{Filename: "Heritage - 101.jpg", Status: "success", URL: "https://drive/x", DesignNumber: "101"},
			{Filename: "b|c.jpg", Status: "error", Error: "no saree found"},
		},
	})
	for _, want := range []string{"# Heritage", "1 processed, 1 failed.", "| 1 | Heritage - 101.jpg | 101 | https://drive/x |", `b\|c.jpg`, "**failed**: no saree found"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestResultLinks_ResolvesRelativeURLs(t *testing.T) {
	t.Parallel()

	got := resultLinks(&upload.Results{Items: []upload.ItemResult{
		{Filename: "Heritage - 101.jpg", Status: "success", URL: "/files/Heritage - 101.jpg"},
		{Filename: "b.jpg", Status: "error", Error: "boom"},
		{Filename: "Heritage - 103.jpg", Status: "success", URL: "https://drive/x"},
	}}, "http://localhost:8000/")
	want := []string{"http://localhost:8000/files/Heritage - 101.jpg", "https://drive/x"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("links = %q, want %q", got, want)
	}
}

// Not parallel: swaps the clipboard writer.
func TestResults_CopyLinks(t *testing.T) {
	var copied string
	prev := writeClipboard
	writeClipboard = func(s string) error { copied = s; return nil }
	defer func() { writeClipboard = prev }()

	m := newTestModel(t, Options{Server: "http://localhost:8000"})
	m.results = &upload.Results{Catalog: "Heritage", Items: []upload.ItemResult{
		{Filename: "Heritage - 101.jpg", Status: "success", URL: "/files/a.jpg"},
		{Filename: "Heritage - 102.jpg", Status: "success", URL: "/files/b.jpg"},
	}}
	m.view = viewResults

	m = update(t, m, runes("y"))
	if copied != "http://localhost:8000/files/a.jpg\nhttp://localhost:8000/files/b.jpg" {
		t.Fatalf("copied %q", copied)
	}
	if m.toast == nil || m.toast.Kind != notify.KindSuccess {
		t.Fatalf("expected success toast, got %+v", m.toast)
	}

	m.results = &upload.Results{Items: []upload.ItemResult{{Filename: "x", Status: "error"}}}
	m = update(t, m, runes("y"))
	if m.toast == nil || m.toast.Kind != notify.KindWarning {
		t.Fatalf("expected warning toast, got %+v", m.toast)
	}
}
