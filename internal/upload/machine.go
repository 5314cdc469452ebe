package upload

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"photomaker/internal/intake"
	"photomaker/internal/notify"
)

type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	// RedirectDelay is how long the session-expired message shows before the login screen.
	RedirectDelay = 2 * time.Second
	// ProgressHideDelay is how long the finished progress bar stays visible.
	ProgressHideDelay = 1500 * time.Millisecond
)

// Outcome is what a finished submission means for the user.
type Outcome struct {
	State   State
	Results *Results
	Err     error
	Notice  notify.Notification

	// RedirectToLogin is set for auth failures; the caller switches views after RedirectDelay.
	RedirectToLogin bool
	// Retryable marks failures where resubmitting the same payload makes sense.
	Retryable bool
}

// Machine guards submissions: Idle -> Submitting -> Succeeded|Failed -> Idle.
// It is not safe for concurrent use; the TUI drives it from its update loop.
type Machine struct {
	state State
}

func (m *Machine) State() State { return m.state }

// InFlight reports whether a submission is outstanding.
func (m *Machine) InFlight() bool { return m.state == Submitting }

// Begin moves Idle (or a finished state) to Submitting and returns the payload to send.
func (m *Machine) Begin(catalog string, items []intake.Item) (Payload, error) {
	if m.state == Submitting {
		return Payload{}, ErrInFlight
	}
	p, err := BuildPayload(catalog, items)
	if err != nil {
		return Payload{}, err
	}
	m.state = Submitting
	slog.Info("Submission started", "catalog", p.Catalog, "files", len(p.Files))
	return p, nil
}

// Finish classifies the reply (or transport error) and leaves Submitting.
func (m *Machine) Finish(reply Reply, err error) Outcome {
	out := classify(reply, err)
	m.state = out.State
	slog.Info("Submission finished", "state", out.State, "status", reply.StatusCode, "err", out.Err)
	return out
}

// Reset returns a finished machine to Idle. It is a no-op while submitting.
func (m *Machine) Reset() {
	if m.state != Submitting {
		m.state = Idle
	}
}

func classify(reply Reply, err error) Outcome {
	if err != nil {
		var ne *NetworkError
		if !errors.As(err, &ne) {
			ne = &NetworkError{Err: err}
		}
		return Outcome{
			State:     Failed,
			Err:       ne,
			Notice:    notify.Error("Network error, check your connection and try again"),
			Retryable: true,
		}
	}

	switch code := reply.StatusCode; {
	case code == http.StatusUnauthorized:
		ae := &AuthError{Message: errorMessage(reply.Body, "")}
		return Outcome{
			State:           Failed,
			Err:             ae,
			Notice:          notify.Error("Session expired, please log in again"),
			RedirectToLogin: true,
		}
	case code < 200 || code > 299:
		se := &ServerError{StatusCode: code, Message: errorMessage(reply.Body, fmt.Sprintf("Upload failed (HTTP %d)", code))}
		return Outcome{
			State:     Failed,
			Err:       se,
			Notice:    notify.Error("%s", se.Message),
			Retryable: code >= 500,
		}
	}

	var res Results
	if err := json.Unmarshal(reply.Body, &res); err != nil {
		se := &ServerError{StatusCode: reply.StatusCode, Message: "Unreadable response from server"}
		return Outcome{State: Failed, Err: se, Notice: notify.Error("%s", se.Message)}
	}
	ok, failed := res.Counts()
	out := Outcome{State: Succeeded, Results: &res}
	switch {
	case failed == 0:
		out.Notice = notify.Success("Processed %d image(s) for %s", ok, res.Catalog)
	case ok == 0:
		out.Notice = notify.Error("All %d image(s) failed", failed)
	default:
		out.Notice = notify.Warning("%d processed, %d failed", ok, failed)
	}
	return out
}
