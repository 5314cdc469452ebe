package notify

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Durations is how long each kind stays on screen. Errors linger longest.
var Durations = map[Kind]time.Duration{
	KindInfo:    3 * time.Second,
	KindSuccess: 3 * time.Second,
	KindWarning: 4 * time.Second,
	KindError:   5 * time.Second,
}

// Notification is a transient, dismissable message.
type Notification struct {
	Kind    Kind
	Message string
}

func (n Notification) Duration() time.Duration {
	if d, ok := Durations[n.Kind]; ok {
		return d
	}
	return Durations[KindInfo]
}

func (n Notification) String() string {
	return fmt.Sprintf("[%s] %s", n.Kind, n.Message)
}

func Info(format string, args ...any) Notification {
	return Notification{Kind: KindInfo, Message: fmt.Sprintf(format, args...)}
}

func Success(format string, args ...any) Notification {
	return Notification{Kind: KindSuccess, Message: fmt.Sprintf(format, args...)}
}

func Warning(format string, args ...any) Notification {
	return Notification{Kind: KindWarning, Message: fmt.Sprintf(format, args...)}
}

func Error(format string, args ...any) Notification {
	return Notification{Kind: KindError, Message: fmt.Sprintf(format, args...)}
}
