// Package camera grabs single frames from the default video device through ffmpeg
// (v4l2 on Linux, avfoundation on macOS).
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"photomaker/internal/intake"
)

type Reason string

const (
	ReasonPermission  Reason = "permission"
	ReasonNoDevice    Reason = "no-device"
	ReasonUnsupported Reason = "unsupported"
)

// CameraError is a capture failure the user can act on.
type CameraError struct {
	Reason Reason
	Err    error
}

func (e *CameraError) Error() string {
	switch e.Reason {
	case ReasonPermission:
		return "camera access was denied"
	case ReasonNoDevice:
		return "no camera found"
	}
	if e.Err != nil {
		return fmt.Sprintf("camera not supported here: %v", e.Err)
	}
	return "camera not supported here"
}

func (e *CameraError) Unwrap() error { return e.Err }

// ErrClosed is returned by Capture after Close.
var ErrClosed = errors.New("camera closed")

type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Camera is one open capture source. Close releases it and may be called any number of times.
type Camera struct {
	Device string
	GOOS   string

	ffmpeg string
	run    runFunc
	now    func() time.Time

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
}

// DefaultDevice is the platform's first camera.
func DefaultDevice(goos string) string {
	if goos == "darwin" {
		return "0"
	}
	return "/dev/video0"
}

// Open checks that ffmpeg and the device are usable. device may be empty for the default.
func Open(device string) (*Camera, error) {
	return open(device, runtime.GOOS, exec.LookPath, runCommand)
}

func open(device, goos string, lookPath func(string) (string, error), run runFunc) (*Camera, error) {
	if goos != "linux" && goos != "darwin" {
		return nil, &CameraError{Reason: ReasonUnsupported, Err: fmt.Errorf("no capture backend for %s", goos)}
	}
	ffmpeg, err := lookPath("ffmpeg")
	if err != nil {
		return nil, &CameraError{Reason: ReasonUnsupported, Err: fmt.Errorf("ffmpeg not found: %w", err)}
	}
	if device == "" {
		device = DefaultDevice(goos)
	}
	if goos == "linux" {
		f, err := os.Open(device)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, &CameraError{Reason: ReasonNoDevice, Err: err}
		case errors.Is(err, os.ErrPermission):
			return nil, &CameraError{Reason: ReasonPermission, Err: err}
		case err != nil:
			return nil, &CameraError{Reason: ReasonNoDevice, Err: err}
		}
		_ = f.Close()
	}
	return &Camera{Device: device, GOOS: goos, ffmpeg: ffmpeg, run: run, now: time.Now}, nil
}

func (c *Camera) args() []string {
	format := "v4l2"
	if c.GOOS == "darwin" {
		format = "avfoundation"
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format,
		"-i", c.Device,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	}
}

// Capture grabs one JPEG frame, named camera_<unix>.jpg, ready for intake.
func (c *Camera) Capture(ctx context.Context) (intake.RawFile, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return intake.RawFile{}, ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	slog.Debug("Capturing frame", "device", c.Device, "ffmpeg", c.ffmpeg)
	stdout, stderr, err := c.run(ctx, c.ffmpeg, c.args()...)
	if err != nil {
		if c.isClosed() {
			return intake.RawFile{}, ErrClosed
		}
		return intake.RawFile{}, classify(err, string(stderr))
	}
	if len(stdout) == 0 {
		return intake.RawFile{}, &CameraError{Reason: ReasonNoDevice, Err: errors.New("ffmpeg produced no frame")}
	}
	return intake.RawFile{
		Name:      fmt.Sprintf("camera_%d.jpg", c.now().Unix()),
		MediaType: "image/jpeg",
		Data:      stdout,
	}, nil
}

func classify(err error, stderr string) error {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "not authorized"):
		return &CameraError{Reason: ReasonPermission, Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))}
	case strings.Contains(msg, "no such file"), strings.Contains(msg, "no such device"),
		strings.Contains(msg, "cannot open"), strings.Contains(msg, "input/output error"):
		return &CameraError{Reason: ReasonNoDevice, Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))}
	}
	return &CameraError{Reason: ReasonUnsupported, Err: fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, strings.TrimSpace(stderr))}
}

func (c *Camera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close stops any capture in progress. Calling it again is a no-op.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}
