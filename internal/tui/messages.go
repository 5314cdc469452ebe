package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"photomaker/internal/intake"
	"photomaker/internal/upload"
)

// frameInterval paces incremental card placement.
const frameInterval = 16 * time.Millisecond

type frameTickMsg struct{ seq int }

type toastExpiredMsg struct{ seq int }

type progressTickMsg struct{ seq int }

type progressHideMsg struct{ seq int }

type redirectMsg struct{ seq int }

type intakeDoneMsg struct {
	batch intake.Batch
	err   error
}

type cameraDoneMsg struct {
	file intake.RawFile
	err  error
}

type submitDoneMsg struct {
	payload upload.Payload
	reply   upload.Reply
	err     error
	took    time.Duration
}

type loginDoneMsg struct{ err error }

type logoutDoneMsg struct{ err error }

func frameTick(seq int) tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameTickMsg{seq: seq} })
}

func progressTick(seq int) tea.Cmd {
	return tea.Tick(upload.ProgressInterval, func(time.Time) tea.Msg { return progressTickMsg{seq: seq} })
}

// prepareCmd compresses off the update loop. The list is only touched when the result comes
// back as an intakeDoneMsg.
func prepareCmd(ctx context.Context, in *intake.Intake, existing intake.Keys, raws []intake.RawFile) tea.Cmd {
	return func() tea.Msg {
		b, err := in.Prepare(ctx, existing, raws)
		return intakeDoneMsg{batch: b, err: err}
	}
}

func preparePathsCmd(ctx context.Context, in *intake.Intake, existing intake.Keys, paths []string) tea.Cmd {
	return func() tea.Msg {
		raws, err := intake.FromPaths(paths)
		if err != nil {
			return intakeDoneMsg{err: err}
		}
		b, err := in.Prepare(ctx, existing, raws)
		return intakeDoneMsg{batch: b, err: err}
	}
}

func captureCmd(ctx context.Context, capture CaptureFunc) tea.Cmd {
	return func() tea.Msg {
		f, err := capture(ctx)
		return cameraDoneMsg{file: f, err: err}
	}
}

func sendCmd(ctx context.Context, s upload.Sender, p upload.Payload) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		reply, err := s.Send(ctx, p)
		return submitDoneMsg{payload: p, reply: reply, err: err, took: time.Since(start)}
	}
}

func loginCmd(ctx context.Context, s Session, username, password string) tea.Cmd {
	return func() tea.Msg {
		return loginDoneMsg{err: s.Login(ctx, username, password)}
	}
}

func logoutCmd(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		return logoutDoneMsg{err: s.Logout(ctx)}
	}
}
